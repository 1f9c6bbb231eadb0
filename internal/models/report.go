package models

// PositionRef — позиция, порождённая исполнением сигнала.
type PositionRef struct {
	AccountID  string
	PositionID string
	Symbol     string
}

// AccountResult — итог исполнения по одному счёту. Ошибка одного счёта
// не влияет на остальные.
type AccountResult struct {
	AccountID string
	Login     string
	Orders    int
	Volume    float64
	Err       error
}

// ExecutionReport — результат фан-аута сигнала по счетам.
type ExecutionReport struct {
	Symbol    string
	NoTargets bool // не было привязанных счетов
	Accounts  []AccountResult
}

func (r ExecutionReport) TotalOrders() int {
	n := 0
	for _, a := range r.Accounts {
		n += a.Orders
	}
	return n
}

func (r ExecutionReport) Failed() []AccountResult {
	var out []AccountResult
	for _, a := range r.Accounts {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// UpdateAction — что сделали с позицией по follow-up сообщению.
type UpdateAction string

const (
	UpdatePartialClose UpdateAction = "partial_close"
	UpdateBreakeven    UpdateAction = "breakeven"
	UpdateFullClose    UpdateAction = "full_close"
)

// PositionUpdate — одно действие над одной позицией.
type PositionUpdate struct {
	AccountID  string
	PositionID string
	Action     UpdateAction
	Err        error
}

// UpdateReport — результат обработки update-сигнала.
type UpdateReport struct {
	Symbol          string
	NothingToUpdate bool // нет pending-записи либо ни одной подходящей позиции
	Updates         []PositionUpdate
}

func (r UpdateReport) Applied() int {
	n := 0
	for _, u := range r.Updates {
		if u.Err == nil {
			n++
		}
	}
	return n
}
