package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/andes-audit/concilia/internal/resilience"
	"github.com/andes-audit/concilia/pkg/anthropic"
)

const systemPrompt = "Eres un auditor contable chileno. Redactas informes " +
	"breves y claros sobre conciliaciones entre un libro de compras Softland " +
	"y un registro de control presupuestario. Escribes en español formal, " +
	"sin inventar cifras: usas solo los datos entregados."

// Generator produces prose reports from reconciliation summaries.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewGenerator builds a Generator. The limiter keeps interactive sessions
// from hammering the API when a user re-requests reports.
func NewGenerator(client anthropic.Client, model string, maxTokens int64) *Generator {
	return &Generator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(rate.Limit(0.5), 1),
		retry:     resilience.DefaultRetryConfig(),
	}
}

// Generate renders the summary as prose via the collaborator. On failure it
// returns a wrapped error; callers surface it as an inline message and the
// reconciliation state is never affected.
func (g *Generator) Generate(ctx context.Context, s Summary) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "report: rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, g.retry, "report.generate",
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return g.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     g.model,
				MaxTokens: g.maxTokens,
				System:    systemPrompt,
				Messages:  []anthropic.Message{{Role: "user", Content: Prompt(s)}},
			})
		})
	if err != nil {
		return "", eris.Wrap(err, "report: generate")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.New("report: collaborator returned empty response")
	}

	zap.L().Info("report generated",
		zap.String("entity", s.Entity),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return text, nil
}

// Prompt renders the structured summary as the user message for the
// collaborator.
func Prompt(s Summary) string {
	var b strings.Builder

	entity := s.Entity
	if entity == "" {
		entity = "la entidad"
	}
	fmt.Fprintf(&b, "Redacta un informe de conciliación para %s.\n\n", entity)

	b.WriteString("Resumen:\n")
	fmt.Fprintf(&b, "- Documentos Softland (válidos): %d\n", s.SoftlandTotal)
	fmt.Fprintf(&b, "- Documentos registro de control: %d\n", s.ControlTotal)
	fmt.Fprintf(&b, "- Coincidentes: %d\n", s.MatchedCount)
	fmt.Fprintf(&b, "- Faltantes en control: %d por $%d\n", s.MissingCount, s.MissingAmount)
	fmt.Fprintf(&b, "- Verificados por auditor: %d\n", s.Audit.VerifiedCount)
	fmt.Fprintf(&b, "- Falsos positivos: %d\n", s.Audit.FailedCount)
	fmt.Fprintf(&b, "- Faltantes reales: %d por $%d\n\n", s.Audit.RealMissingCount, s.Audit.RealMissingAmount)

	if len(s.Months) > 0 {
		b.WriteString("Faltantes por mes:\n")
		for _, m := range s.Months {
			fmt.Fprintf(&b, "- %s: %d documentos, $%d\n", m.Month, m.Count, m.Total)
		}
		b.WriteString("\n")
	}

	if len(s.TopMissing) > 0 {
		b.WriteString("Mayores documentos faltantes:\n")
		for _, rec := range s.TopMissing {
			fmt.Fprintf(&b, "- Factura %s, RUT %s, %s, $%d (%s)\n",
				rec.Factura, rec.RUT, rec.Nombre, rec.Monto, rec.Fecha)
		}
	}
	return b.String()
}
