package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/alejandrodnm/p2ptracker/internal/ports"
)

const (
	simplifyListEndpoint = "/v5/p2p/order/simplifyList"

	maxPageSize = 30 // tope de la API
	maxPages    = 1000
	// páginas vacías consecutivas toleradas antes de dar la fuente por agotada
	maxConsecutiveEmpty = 3
)

// rawOrder es una orden P2P tal como la devuelve simplifyList. Los campos
// numéricos llegan a veces como string y a veces como número, por eso flex.
type rawOrder struct {
	ID                  string `json:"id"`
	OrderID             string `json:"orderId"`
	Side                flex   `json:"side"`
	TokenID             string `json:"tokenId"`
	CurrencyID          string `json:"currencyId"`
	Amount              flex   `json:"amount"` // leg fiat
	Price               flex   `json:"price"`
	NotifyTokenQuantity flex   `json:"notifyTokenQuantity"`
	TokenQuantity       flex   `json:"tokenQuantity"`
	TokenAmount         flex   `json:"tokenAmount"`
	Status              flex   `json:"status"`
	TargetNickName      string `json:"targetNickName"`
	TargetUserID        string `json:"targetUserId"`
	CreateDate          flex   `json:"createDate"`
	UpdateDate          flex   `json:"updateDate"`
}

type simplifyListResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Items []rawOrder `json:"items"`
		List  []rawOrder `json:"list"`
	} `json:"result"`
}

// Source implementa ports.TradeSource contra la API P2P de Bybit.
type Source struct {
	client   *Client
	norm     Normalizer
	pageSize int
}

// NewSource crea la fuente de trades con el client y el normalizador dados.
func NewSource(client *Client, norm Normalizer, pageSize int) *Source {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Source{client: client, norm: norm, pageSize: pageSize}
}

// FetchCompleted pagina simplifyList en [beginMs, endMs] y devuelve los
// trades normalizados, deduplicados por id dentro de la pasada.
//
// Condiciones de parada: tres páginas vacías consecutivas, página corta
// (menos items que el page size), o el techo de páginas. Un fallo
// transitorio de la fuente corta la pasada y devuelve el progreso parcial
// junto con ports.ErrIncompleteSync — el caller decide conservarlo.
func (s *Source) FetchCompleted(ctx context.Context, beginMs, endMs int64) ([]domain.Trade, error) {
	var (
		trades           []domain.Trade
		seen             = make(map[string]struct{})
		consecutiveEmpty = 0
	)

	for page := 1; page <= maxPages; page++ {
		body := map[string]any{
			"page":      page,
			"size":      s.pageSize,
			"status":    domain.StatusCompleted,
			"beginTime": fmt.Sprintf("%d", beginMs),
			"endTime":   fmt.Sprintf("%d", endMs),
		}

		var resp simplifyListResponse
		if err := s.client.post(ctx, simplifyListEndpoint, body, &resp); err != nil {
			slog.Warn("trade source unavailable, keeping partial progress",
				"page", page, "fetched", len(trades), "err", err)
			return trades, fmt.Errorf("bybit.FetchCompleted: page %d: %w", page, ports.ErrIncompleteSync)
		}

		items := resp.Result.Items
		if len(items) == 0 {
			items = resp.Result.List
		}
		if resp.RetCode != 0 {
			slog.Warn("simplifyList returned error code",
				"ret_code", resp.RetCode, "ret_msg", resp.RetMsg, "page", page)
			items = nil
		}

		if len(items) == 0 {
			consecutiveEmpty++
			if consecutiveEmpty >= maxConsecutiveEmpty {
				break
			}
			continue
		}
		consecutiveEmpty = 0

		for _, o := range items {
			t, ok := s.norm.Normalize(o)
			if !ok {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			trades = append(trades, t)
		}

		slog.Debug("fetched orders page", "page", page, "items", len(items), "accepted", len(trades))

		if len(items) < s.pageSize {
			break
		}
	}

	return trades, nil
}

// flex acepta un escalar JSON que puede llegar como string o como número
// y conserva su representación textual para el parseo tolerante.
type flex string

func (f *flex) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flex(n.String())
		return nil
	}
	// null u otro literal: se queda vacío y el normalizador aplica defaults
	*f = ""
	return nil
}
