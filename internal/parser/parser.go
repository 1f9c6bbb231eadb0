// Package parser превращает свободный текст сигнала в models.Signal.
// Парсер чистый и детерминированный: никакого I/O, ошибки числового
// разбора просто оставляют поле пустым.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"copier_bot/internal/models"
	"copier_bot/internal/symbols"
)

// Ключевые слова. Таблицы общие для парсера и диспетчера апдейтов:
// диспетчер повторно сканирует сырой текст этими же наборами, и именно
// его скан решает, какая мутация применяется.
var (
	immediateKeywords = []string{"NOW", "IMMEDIATE", "CURRENT", "MARKET", "INSTANT", "QUICK"}
	updateKeywords    = []string{"TP HIT", "TP1 HIT", "TAKE PROFIT", "BREAKEVEN", "CLOSE", "EXIT"}
	tpHitKeywords     = []string{"TP HIT", "TP1 HIT"}
	closeKeywords     = []string{"CLOSE", "EXIT"}
)

// priceRule — правило «метка -> поле сигнала». Порядок в таблице задаёт
// приоритет разбора и делает его проверяемым в одном месте.
type priceRule struct {
	re     *regexp.Regexp
	assign func(sig *models.Signal, v float64)
}

var (
	reEntry   = regexp.MustCompile(`(?i)(?:entry|@|at|price)[:\s]+(\d+\.?\d*)`)
	reBareNum = regexp.MustCompile(`\d+\.?\d*`)

	priceRules = []priceRule{
		{
			re:     regexp.MustCompile(`(?i)(?:sl|stop\s*loss|stop)[:\s]+(\d+\.?\d*)`),
			assign: func(sig *models.Signal, v float64) { sig.StopLoss = v },
		},
		{
			re:     regexp.MustCompile(`(?i)(?:tp\s*1|take\s*profit\s*1|target\s*1)[:\s]+(\d+\.?\d*)`),
			assign: func(sig *models.Signal, v float64) { sig.TP1 = v },
		},
		{
			re:     regexp.MustCompile(`(?i)(?:tp\s*2|take\s*profit\s*2|target\s*2)[:\s]+(\d+\.?\d*)`),
			assign: func(sig *models.Signal, v float64) { sig.TP2 = v },
		},
		{
			re:     regexp.MustCompile(`(?i)(?:tp\s*3|take\s*profit\s*3|target\s*3)[:\s]+(\d+\.?\d*)`),
			assign: func(sig *models.Signal, v float64) { sig.TP3 = v },
		},
	}

	// Общая метка tp/target без номера — считается первым тейком,
	// но только если ни один из tp1..tp3 не распознан.
	reTPGeneric = regexp.MustCompile(`(?i)(?:tp|take\s*profit|target)[:\s]+(\d+\.?\d*)`)
)

// Parse разбирает текст сигнала. Возвращает nil, если в тексте нет
// направления или инструмента — это не ошибка, просто не сигнал.
func Parse(text string) *models.Signal {
	upper := strings.ToUpper(text)

	sig := &models.Signal{RawText: text}

	switch {
	case strings.Contains(upper, "BUY") || strings.Contains(upper, "LONG"):
		sig.Action = models.ActionBuy
	case strings.Contains(upper, "SELL") || strings.Contains(upper, "SHORT"):
		sig.Action = models.ActionSell
	default:
		return nil
	}

	sym, ok := symbols.Resolve(upper)
	if !ok {
		return nil
	}
	sig.Symbol = sym

	if containsAny(upper, immediateKeywords) {
		sig.Immediate = true
	}
	if containsAny(upper, updateKeywords) {
		sig.IsUpdate = true
	}

	// Цена входа: явная метка, иначе первое «голое» число (кроме
	// immediate-сигналов — им вход не нужен).
	if m := reEntry.FindStringSubmatch(text); m != nil {
		sig.Entry = parsePrice(m[1])
	} else if !sig.Immediate {
		if m := reBareNum.FindString(text); m != "" {
			sig.Entry = parsePrice(m)
		}
	}
	if sig.Immediate {
		sig.Entry = 0
	}

	for _, rule := range priceRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			rule.assign(sig, parsePrice(m[1]))
		}
	}
	if sig.TP1 == 0 && sig.TP2 == 0 && sig.TP3 == 0 {
		if m := reTPGeneric.FindStringSubmatch(text); m != nil {
			sig.TP1 = parsePrice(m[1])
		}
	}

	return sig
}

// UpdateKind повторно сканирует сырой текст update-сообщения и говорит,
// какие ветки применять. Оба флага могут быть истинны одновременно.
func UpdateKind(raw string) (tpHit, closeAll bool) {
	upper := strings.ToUpper(raw)
	return containsAny(upper, tpHitKeywords), containsAny(upper, closeKeywords)
}

// IsUpdate — принадлежит ли текст к follow-up сообщениям.
func IsUpdate(raw string) bool {
	return containsAny(strings.ToUpper(raw), updateKeywords)
}

func containsAny(upper string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
