package logger

import "go.uber.org/zap"

// Init собирает продакшн-логгеры. Зовётся один раз из main до старта fx.
func Init() error {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	InfoLogger = l
	FatalLogger = l
	return nil
}
