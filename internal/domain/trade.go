package domain

// Side es el lado de un trade P2P. Los códigos coinciden con los de la API.
type Side int

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

// String devuelve la etiqueta legible del lado.
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// StatusCompleted es el único status que entra al ledger: orden totalmente
// completada según la fuente.
const StatusCompleted = 50

// Trade es una ejecución P2P inmutable una vez completada.
// Quantity guarda la cantidad BRUTA del leg crypto: el fee de compra se
// trackea aparte y se descuenta solo al calcular profit.
type Trade struct {
	ID           string
	Side         Side
	Asset        string  // símbolo del leg crypto (un solo par en este sistema)
	Quantity     float64 // cantidad crypto, > 0
	FiatAmount   float64 // leg fiat en la ejecución
	Price        float64 // fiat por unidad; el profit usa este campo, no FiatAmount
	Fee          float64 // en unidades crypto; 0 para SELL
	Counterparty string
	Status       int
	CreatedAt    int64 // epoch ms, informativo
	CompletedAt  int64 // epoch ms, clave de orden para matching y ventanas
}

// TradingDayWindow es una sesión de trading abierta/cerrada manualmente.
// Como mucho una ventana puede estar abierta (EndedAt == nil) a la vez.
type TradingDayWindow struct {
	ID        int64
	StartedAt int64
	EndedAt   *int64 // nil = abierta
}

// DailyBalance es una fila por fecha calendario (YYYY-MM-DD), independiente
// de TradingDayWindow. Una fecha con ClosingBalance no nulo cuenta como
// "día cerrado" para los rollups semanales/mensuales.
type DailyBalance struct {
	Date           string
	OpeningBalance *float64
	ClosingBalance *float64
}
