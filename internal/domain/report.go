package domain

// Summary es el resumen agregado de una ventana de reporting, consumible
// por cualquier capa de presentación. NetProfitFiat llega ya redondeado a
// 2 decimales; el resto de formateo (strings de moneda) es cosa del
// presentador.
type Summary struct {
	PeriodLabel    string
	StartMs        int64
	EndMs          int64
	BoughtQuantity float64 // suma de Quantity de BUYs en la ventana
	SoldQuantity   float64 // suma de Quantity de SELLs en la ventana
	BuyCount       int
	SellCount      int
	NetProfitFiat  float64
	TradingDays    int // días cerrados incluidos; 0 en reportes de ventana única
}

// RangeTotals son las sumas/conteos simples sobre el ledger en un rango,
// sin matching de por medio.
type RangeTotals struct {
	BoughtQuantity float64
	SoldQuantity   float64
	BuyCount       int
	SellCount      int
}
