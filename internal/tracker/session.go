package tracker

// session.go — entrada manual de trades y balances.
//
// El flujo de alta es multi-paso (lado → cantidad → precio). El estado
// vive en registros explícitos por sesión, con funciones de transición
// explícitas — nada de variables de proceso compartidas entre sesiones.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/alejandrodnm/p2ptracker/internal/ports"
	"github.com/google/uuid"
)

// AddTradeState es el paso actual del flujo de alta manual.
type AddTradeState int

const (
	StateChooseSide AddTradeState = iota
	StateEnterQuantity
	StateEnterPrice
)

// AddTradeSession es el registro de estado de un alta en curso.
type AddTradeSession struct {
	State    AddTradeState
	Side     domain.Side
	Quantity float64
}

// Manual gestiona la entrada manual: altas de trades, balances de
// apertura/cierre y control del trading day.
type Manual struct {
	ledger ports.Ledger
	asset  string
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*AddTradeSession
	opening  map[string]struct{} // sesiones esperando un balance de apertura
	closing  map[string]struct{} // sesiones esperando un balance de cierre
}

// NewManual crea el gestor de entrada manual para el asset configurado.
func NewManual(ledger ports.Ledger, asset string) *Manual {
	return &Manual{
		ledger:   ledger,
		asset:    asset,
		now:      time.Now,
		sessions: make(map[string]*AddTradeSession),
		opening:  make(map[string]struct{}),
		closing:  make(map[string]struct{}),
	}
}

// BeginAddTrade abre (o reinicia) el flujo de alta para la sesión.
func (m *Manual) BeginAddTrade(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = &AddTradeSession{State: StateChooseSide}
}

// ChooseSide transiciona lado → cantidad.
func (m *Manual) ChooseSide(sessionID string, side domain.Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.State != StateChooseSide {
		return fmt.Errorf("tracker.ChooseSide: session %q is not choosing a side", sessionID)
	}
	if side != domain.SideBuy && side != domain.SideSell {
		return fmt.Errorf("tracker.ChooseSide: invalid side %d", int(side))
	}
	s.Side = side
	s.State = StateEnterQuantity
	return nil
}

// EnterQuantity transiciona cantidad → precio.
func (m *Manual) EnterQuantity(sessionID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok || s.State != StateEnterQuantity {
		return fmt.Errorf("tracker.EnterQuantity: session %q is not entering a quantity", sessionID)
	}
	qty, err := parseAmount(text)
	if err != nil {
		return fmt.Errorf("tracker.EnterQuantity: %w", err)
	}
	if qty <= 0 {
		return fmt.Errorf("tracker.EnterQuantity: quantity must be > 0")
	}
	s.Quantity = qty
	s.State = StateEnterPrice
	return nil
}

// EnterPrice completa el flujo: inserta el trade manual y descarta la
// sesión. Devuelve el trade insertado.
func (m *Manual) EnterPrice(ctx context.Context, sessionID, text string) (domain.Trade, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.State != StateEnterPrice {
		m.mu.Unlock()
		return domain.Trade{}, fmt.Errorf("tracker.EnterPrice: session %q is not entering a price", sessionID)
	}
	side, qty := s.Side, s.Quantity
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	price, err := parseAmount(text)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("tracker.EnterPrice: %w", err)
	}
	return m.AddManualTrade(ctx, side, qty, price)
}

// AddManualTrade inserta un trade manual de una sola vez, sin flujo.
// El fiat se deriva de quantity * price; el fee manual es 0 (los trades
// offline no pagan fee de exchange).
func (m *Manual) AddManualTrade(ctx context.Context, side domain.Side, quantity, price float64) (domain.Trade, error) {
	if side != domain.SideBuy && side != domain.SideSell {
		return domain.Trade{}, fmt.Errorf("tracker.AddManualTrade: invalid side %d", int(side))
	}
	if quantity <= 0 || price <= 0 {
		return domain.Trade{}, fmt.Errorf("tracker.AddManualTrade: quantity and price must be > 0")
	}

	nowMs := m.now().UnixMilli()
	t := domain.Trade{
		ID:           "manual-" + uuid.New().String(),
		Side:         side,
		Asset:        m.asset,
		Quantity:     quantity,
		FiatAmount:   domain.RoundFiat(quantity * price),
		Price:        price,
		Fee:          0,
		Counterparty: "offline",
		Status:       domain.StatusCompleted,
		CreatedAt:    nowMs,
		CompletedAt:  nowMs,
	}

	if _, err := m.ledger.UpsertTrade(ctx, t); err != nil {
		return domain.Trade{}, fmt.Errorf("tracker.AddManualTrade: %w", err)
	}
	return t, nil
}

// BeginOpeningBalance marca la sesión como esperando un balance de apertura.
func (m *Manual) BeginOpeningBalance(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opening[sessionID] = struct{}{}
}

// EnterOpeningBalance guarda el balance de apertura de hoy y cierra la
// sesión de entrada.
func (m *Manual) EnterOpeningBalance(ctx context.Context, sessionID, text string) (string, error) {
	m.mu.Lock()
	_, ok := m.opening[sessionID]
	delete(m.opening, sessionID)
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("tracker.EnterOpeningBalance: session %q is not entering a balance", sessionID)
	}

	amount, err := parseAmount(text)
	if err != nil {
		return "", fmt.Errorf("tracker.EnterOpeningBalance: %w", err)
	}

	date := m.now().Format(domain.DateLayout)
	if err := m.ledger.SetOpeningBalance(ctx, date, amount); err != nil {
		return "", fmt.Errorf("tracker.EnterOpeningBalance: %w", err)
	}
	return date, nil
}

// BeginClosingBalance marca la sesión como esperando un balance de cierre.
func (m *Manual) BeginClosingBalance(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closing[sessionID] = struct{}{}
}

// EnterClosingBalance guarda el balance de cierre de hoy. Falla si hoy no
// tiene balance de apertura — el cierre no crea la fila.
func (m *Manual) EnterClosingBalance(ctx context.Context, sessionID, text string) (string, error) {
	m.mu.Lock()
	_, ok := m.closing[sessionID]
	delete(m.closing, sessionID)
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("tracker.EnterClosingBalance: session %q is not entering a balance", sessionID)
	}

	amount, err := parseAmount(text)
	if err != nil {
		return "", fmt.Errorf("tracker.EnterClosingBalance: %w", err)
	}

	date := m.now().Format(domain.DateLayout)
	updated, err := m.ledger.SetClosingBalance(ctx, date, amount)
	if err != nil {
		return "", fmt.Errorf("tracker.EnterClosingBalance: %w", err)
	}
	if !updated {
		return "", fmt.Errorf("tracker.EnterClosingBalance: no opening balance for %s", date)
	}
	return date, nil
}

// StartDay abre una ventana de trading nueva, cerrando cualquier previa.
func (m *Manual) StartDay(ctx context.Context) error {
	if err := m.ledger.StartTradingDay(ctx, m.now().UnixMilli()); err != nil {
		return fmt.Errorf("tracker.StartDay: %w", err)
	}
	return nil
}

// EndDay cierra la ventana abierta. ErrNoWindow si no hay ninguna.
func (m *Manual) EndDay(ctx context.Context) error {
	closed, err := m.ledger.EndTradingDay(ctx, m.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("tracker.EndDay: %w", err)
	}
	if !closed {
		return ErrNoWindow
	}
	return nil
}

// parseAmount parsea un importe tecleado por el usuario, tolerando
// separadores de miles.
func parseAmount(text string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	return v, nil
}
