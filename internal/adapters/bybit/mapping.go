package bybit

import (
	"strconv"
	"strings"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
)

// Normalizer valida y convierte órdenes crudas en trades canónicos.
// Solo acepta el par configurado y el status "totalmente completada";
// todo lo demás se filtra en silencio — es política, no error.
type Normalizer struct {
	Asset   string  // ej. "USDT"
	Fiat    string  // ej. "NGN"
	FeeRate float64 // fee de compra: quantity * FeeRate, en crypto
}

// Normalize devuelve el Trade canónico y true, o el cero y false si el
// registro se rechaza (sin id, sin completedAt) o se filtra (otro par,
// otro status).
//
// La cantidad guardada es la BRUTA recibida: el fee no se descuenta aquí,
// se trackea aparte para el cálculo de profit.
func (n Normalizer) Normalize(o rawOrder) (domain.Trade, bool) {
	// El id aparece bajo cualquiera de los dos nombres según el endpoint
	id := o.ID
	if id == "" {
		id = o.OrderID
	}
	if id == "" {
		return domain.Trade{}, false
	}

	if o.CurrencyID != n.Fiat || o.TokenID != n.Asset {
		return domain.Trade{}, false
	}
	if safeInt(string(o.Status)) != domain.StatusCompleted {
		return domain.Trade{}, false
	}

	createdAt := safeInt64(string(o.CreateDate))
	completedAt := safeInt64(string(o.UpdateDate))
	if completedAt <= 0 {
		completedAt = createdAt
	}
	if completedAt <= 0 {
		return domain.Trade{}, false
	}

	side := domain.Side(safeInt(string(o.Side)))

	quantity := safeFloat(string(o.NotifyTokenQuantity))
	if quantity == 0 {
		quantity = safeFloat(string(o.TokenQuantity))
	}
	if quantity == 0 {
		quantity = safeFloat(string(o.TokenAmount))
	}
	if quantity <= 0 {
		return domain.Trade{}, false
	}

	var fee float64
	if side == domain.SideBuy {
		fee = quantity * n.FeeRate
	}

	counterparty := o.TargetNickName
	if counterparty == "" {
		counterparty = o.TargetUserID
	}

	return domain.Trade{
		ID:           id,
		Side:         side,
		Asset:        n.Asset,
		Quantity:     quantity,
		FiatAmount:   safeFloat(string(o.Amount)),
		Price:        safeFloat(string(o.Price)),
		Fee:          fee,
		Counterparty: counterparty,
		Status:       domain.StatusCompleted,
		CreatedAt:    createdAt,
		CompletedAt:  completedAt,
	}, true
}

// safeFloat parsea un número tolerando separadores de miles y espacios.
func safeFloat(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func safeInt(s string) int {
	return int(safeInt64(s))
}

func safeInt64(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
