package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/p2ptracker/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	asset string
	fiat  string
}

// NewConsole crea un notificador de consola para el par configurado.
func NewConsole(asset, fiat string) *Console {
	return &Console{out: os.Stdout, asset: asset, fiat: fiat}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, asset, fiat string) *Console {
	return &Console{out: w, asset: asset, fiat: fiat}
}

// PublishSummary imprime el resumen de una ventana en unas pocas líneas.
// Formateo de presentación: fiat a 2 decimales, crypto a 4.
func (c *Console) PublishSummary(_ context.Context, s domain.Summary) error {
	fmt.Fprintf(c.out, "\n=== %s report ===\n", s.PeriodLabel)
	fmt.Fprintf(c.out, "period: %s → %s\n", formatMs(s.StartMs), formatMs(s.EndMs))
	if s.TradingDays > 0 {
		fmt.Fprintf(c.out, "trading days: %d\n", s.TradingDays)
	}
	fmt.Fprintf(c.out, "bought: %.4f %s (%d buys)\n", s.BoughtQuantity, c.asset, s.BuyCount)
	fmt.Fprintf(c.out, "sold:   %.4f %s (%d sells)\n", s.SoldQuantity, c.asset, s.SellCount)
	fmt.Fprintf(c.out, "profit: %.2f %s\n", s.NetProfitFiat, c.fiat)
	return nil
}

// PublishDetail imprime el reporte de auditoría: una fila por match en
// orden de emisión del motor, más los totales.
func (c *Console) PublishDetail(_ context.Context, matches []domain.Match, s domain.Summary) error {
	if len(matches) == 0 {
		fmt.Fprintf(c.out, "no matched trades in period %s\n", s.PeriodLabel)
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Buy Time", "Sell Time", c.asset, "Buy Price", "Sell Price", "Buy Fee "+c.fiat, "Profit "+c.fiat)

	var totalFees float64
	for _, m := range matches {
		totalFees += m.FeeFiat
		table.Append(
			formatMs(m.BuyTime),
			formatMs(m.SellTime),
			fmt.Sprintf("%.4f", m.Quantity),
			fmt.Sprintf("%.2f", m.BuyPrice),
			fmt.Sprintf("%.2f", m.SellPrice),
			fmt.Sprintf("%.2f", m.FeeFiat),
			fmt.Sprintf("%.2f", m.NetProfit),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "TOTAL PROFIT: %.2f %s | TOTAL BUY FEES: %.2f %s | %d buys · %d sells\n",
		s.NetProfitFiat, c.fiat, domain.RoundFiat(totalFees), c.fiat, s.BuyCount, s.SellCount)
	return nil
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
