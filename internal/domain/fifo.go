package domain

import "math"

// BuyLot es inventario de compra aún no consumido por ventas. Estado
// transitorio del motor de matching: se recalcula en cada pasada, nunca
// se persiste.
type BuyLot struct {
	Remaining float64 // cantidad crypto disponible
	Original  float64 // cantidad original del BUY, para prorratear el fee
	Price     float64 // fiat por unidad al comprar
	Fee       float64 // fee total del BUY, en crypto
	BuyTime   int64   // completedAt del BUY, epoch ms
}

// Match es el resultado de consumir parte de un lote con una venta.
type Match struct {
	BuyTime   int64
	SellTime  int64
	Quantity  float64 // cantidad crypto emparejada
	BuyPrice  float64
	SellPrice float64
	FeeFiat   float64 // fee de compra asignado, convertido a fiat al precio de COMPRA
	NetProfit float64 // fiat, sin redondear
}

// lotQueue es la cola FIFO de lotes: frente = lote más antiguo.
// Slice con índice de cabeza para pop/push de frente en O(1) amortizado.
type lotQueue struct {
	lots []BuyLot
	head int
}

func (q *lotQueue) empty() bool { return q.head >= len(q.lots) }

func (q *lotQueue) pushBack(l BuyLot) { q.lots = append(q.lots, l) }

func (q *lotQueue) popFront() BuyLot {
	l := q.lots[q.head]
	q.head++
	return l
}

// pushFront reinserta un lote parcialmente consumido como el más antiguo.
func (q *lotQueue) pushFront(l BuyLot) {
	if q.head > 0 {
		q.head--
		q.lots[q.head] = l
		return
	}
	q.lots = append([]BuyLot{l}, q.lots...)
}

// MatchFIFO recorre trades en orden ascendente de CompletedAt y empareja
// cada SELL contra los lotes de compra más antiguos.
//
// Reglas:
//   - BUY: entra a la cola como lote {Quantity, Price, Fee, CompletedAt}.
//   - SELL: consume lotes desde el frente; el sobrante de un lote vuelve
//     al FRENTE de la cola — sigue siendo el inventario más antiguo y las
//     ventas posteriores deben consumirlo primero.
//   - SELL sin lotes disponibles: no genera match ni profit; no es error
//     (venta sin base de coste trackeada).
//   - Fee: prorrateado por matched/original y convertido a fiat al precio
//     de COMPRA. Lote con cantidad original cero aporta fee cero.
//
// El total devuelto va sin redondear: el redondeo a 2 decimales es
// responsabilidad del borde de reporting, no del motor.
func MatchFIFO(trades []Trade) ([]Match, float64) {
	var (
		queue   lotQueue
		matches []Match
		total   float64
	)

	for _, t := range trades {
		switch t.Side {
		case SideBuy:
			queue.pushBack(BuyLot{
				Remaining: t.Quantity,
				Original:  t.Quantity,
				Price:     t.Price,
				Fee:       t.Fee,
				BuyTime:   t.CompletedAt,
			})

		case SideSell:
			remaining := t.Quantity
			for remaining > 0 && !queue.empty() {
				lot := queue.popFront()

				matched := math.Min(lot.Remaining, remaining)

				var feeFiat float64
				if lot.Original > 0 {
					feeFiat = lot.Fee * (matched / lot.Original) * lot.Price
				}

				gross := matched * (t.Price - lot.Price)
				net := gross - feeFiat

				matches = append(matches, Match{
					BuyTime:   lot.BuyTime,
					SellTime:  t.CompletedAt,
					Quantity:  matched,
					BuyPrice:  lot.Price,
					SellPrice: t.Price,
					FeeFiat:   feeFiat,
					NetProfit: net,
				})
				total += net

				remaining -= matched
				lot.Remaining -= matched
				if lot.Remaining > 0 {
					queue.pushFront(lot)
				}
			}
		}
	}

	return matches, total
}

// RoundFiat redondea un importe fiat a 2 decimales. Solo para el borde de
// reporting — nunca a mitad de cálculo.
func RoundFiat(v float64) float64 {
	return math.Round(v*100) / 100
}
