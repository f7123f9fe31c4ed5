package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/freitasmatheusrn/catalog-reconciler/internal/catalogsync"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/email"
	"github.com/freitasmatheusrn/catalog-reconciler/internal/report"
	"github.com/freitasmatheusrn/catalog-reconciler/pkg/notification"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Batches are the scheduled passes.
type Batches interface {
	ScanCatalog(ctx context.Context) (*report.Report, error)
	AnalyzeAll(ctx context.Context) (*report.Report, error)
}

// Recipients holds one email list per report channel.
type Recipients struct {
	Status    []string
	Attention []string
	Alert     []string
}

type Config struct {
	Recipients Recipients
	AlertPhone string
	JobTimeout time.Duration
}

type Scheduler struct {
	cron       *cron.Cron
	batches    Batches
	logger     *zap.Logger
	email      email.Email
	sms        notification.Notification
	recipients Recipients
	alertPhone string
	jobTimeout time.Duration
}

// NewScheduler builds the nightly job. sms may be nil when Twilio is not
// configured.
func NewScheduler(batches Batches, logger *zap.Logger, e email.Email, sms notification.Notification, cfg Config) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 3 * time.Hour
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		batches:    batches,
		logger:     logger,
		email:      e,
		sms:        sms,
		recipients: cfg.Recipients,
		alertPhone: cfg.AlertPhone,
		jobTimeout: cfg.JobTimeout,
	}
}

// Start registers the nightly job.
// cronExpr uses 6 fields: seconds, minutes, hours, day of month, month, day of week
// Example: "0 0 3 * * *" runs at 3:00 AM every day
func (s *Scheduler) Start(cronExpr string) error {
	if _, err := s.cron.AddFunc(cronExpr, s.runNightlyJob); err != nil {
		return fmt.Errorf("schedule %q: %w", cronExpr, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("cron_expression", cronExpr))
	return nil
}

// Stop stops the cron; the returned context is done once a running job ends.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// RunNow executes the nightly job immediately (for manual triggers)
func (s *Scheduler) RunNow() {
	go s.runNightlyJob()
}

// runNightlyJob re-resolves every stored variant and then refreshes AI
// content. The analysis pass runs even when the scan fails.
func (s *Scheduler) runNightlyJob() {
	s.logger.Info("starting nightly job")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	s.runBatch(ctx, "catalog scan", s.batches.ScanCatalog)
	s.runBatch(ctx, "content analysis", s.batches.AnalyzeAll)

	s.logger.Info("nightly job completed", zap.Duration("duration", time.Since(startTime)))
}

func (s *Scheduler) runBatch(ctx context.Context, name string, run func(context.Context) (*report.Report, error)) {
	rep, err := run(ctx)
	if errors.Is(err, catalogsync.ErrBusy) {
		s.logger.Warn("batch skipped, another batch is running", zap.String("batch", name))
		return
	}
	if err != nil {
		s.notifyError(name+" failed", err)
		// interrupted batches still carry partial results
		if rep == nil {
			return
		}
	}
	s.sendReport(rep)
}

// sendReport emails each non-empty channel to its list and texts the
// alert phone when there are IT errors.
func (s *Scheduler) sendReport(rep *report.Report) {
	if rep == nil || rep.Empty() {
		return
	}

	if len(rep.StatusChanges) > 0 {
		s.send(s.recipients.Status, statusChangeEmail(rep), zap.Int("status_changes", len(rep.StatusChanges)))
	}
	if len(rep.Attention) > 0 {
		subject := "Atenção necessária no catálogo"
		s.send(s.recipients.Attention, issueEmail(subject, "Os seguintes itens precisam de atenção:", rep, rep.Attention, "#FFA000"), zap.Int("attention", len(rep.Attention)))
	}
	if len(rep.ITErrors) > 0 {
		subject := "⚠️ Erros de TI no catálogo"
		s.send(s.recipients.Alert, issueEmail(subject, "Os seguintes erros ocorreram durante a execução:", rep, rep.ITErrors, "#f44336"), zap.Int("it_errors", len(rep.ITErrors)))
		s.alert(rep)
	}
}

type message struct {
	subject string
	text    string
	html    string
}

func (s *Scheduler) send(recipients []string, m message, field zap.Field) {
	if len(recipients) == 0 {
		s.logger.Warn("no email recipients configured, skipping notification",
			zap.String("subject", m.subject),
			field,
		)
		return
	}

	if err := s.email.Send(m.subject, m.text, m.html, recipients); err != nil {
		s.logger.Error("failed to send report email",
			zap.Error(err),
			zap.String("subject", m.subject),
			field,
		)
		return
	}

	s.logger.Info("report email sent successfully",
		zap.String("subject", m.subject),
		zap.Int("recipients_count", len(recipients)),
		field,
	)
}

func (s *Scheduler) alert(rep *report.Report) {
	if s.sms == nil || s.alertPhone == "" {
		return
	}
	msg := notification.AlertMessage(rep.Kind, rep.ID.String(), len(rep.ITErrors))
	if err := s.sms.Send(s.alertPhone, msg); err != nil {
		s.logger.Error("failed to send alert sms", zap.Error(err), zap.String("run_id", rep.ID.String()))
	}
}

const emailHead = `<!DOCTYPE html>
<html>
<head>
	<style>
		body { font-family: Arial, sans-serif; }
		table { border-collapse: collapse; width: 100%%; margin-top: 20px; }
		th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
		th { background-color: %s; color: white; }
		tr:nth-child(even) { background-color: #f2f2f2; }
		h2 { color: #333; }
		.run { color: #666; font-size: 12px; }
	</style>
</head>
<body>
`

const emailTail = `	</table>
	<p class="run">Execução %s (%s) em %s</p>
</body>
</html>`

func runLine(rep *report.Report) string {
	return fmt.Sprintf("Execução %s (%s) em %s", rep.ID, rep.Kind, rep.StartedAt.Format("2006-01-02 15:04:05"))
}

func statusChangeEmail(rep *report.Report) message {
	var text strings.Builder
	text.WriteString("Os seguintes produtos mudaram de status:\n\n")
	for _, c := range rep.StatusChanges {
		text.WriteString("SKU: " + c.SKU + " " + c.Variant + "\n")
		text.WriteString("  Status Antigo: " + c.OldStatus + "\n")
		text.WriteString("  Novo Status: " + c.NewStatus + " (" + c.Reason + ")\n\n")
	}
	text.WriteString(runLine(rep))

	var body strings.Builder
	fmt.Fprintf(&body, emailHead, "#4CAF50")
	body.WriteString(`	<h2>Mudanças de Status Detectadas</h2>
	<p>Os seguintes produtos tiveram mudanças de status:</p>
	<table>
		<tr>
			<th>SKU</th>
			<th>Variante</th>
			<th>Status Antigo</th>
			<th>Novo Status</th>
			<th>Motivo</th>
		</tr>
`)
	for _, c := range rep.StatusChanges {
		body.WriteString("		<tr>")
		for _, cell := range []string{c.SKU, c.Variant, c.OldStatus, c.NewStatus, c.Reason} {
			body.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		body.WriteString("</tr>\n")
	}
	fmt.Fprintf(&body, emailTail, rep.ID, rep.Kind, rep.StartedAt.Format("2006-01-02 15:04:05"))

	return message{
		subject: "Mudança de status de produtos detectada",
		text:    text.String(),
		html:    body.String(),
	}
}

func issueEmail(subject, intro string, rep *report.Report, issues []report.Issue, color string) message {
	var text strings.Builder
	text.WriteString(intro + "\n\n")
	for _, i := range issues {
		text.WriteString(i.Code + ": " + i.Message + "\n")
	}
	text.WriteString("\n" + runLine(rep))

	var body strings.Builder
	fmt.Fprintf(&body, emailHead, color)
	fmt.Fprintf(&body, `	<h2>%s</h2>
	<p>%s</p>
	<table>
		<tr>
			<th>Código</th>
			<th>Mensagem</th>
		</tr>
`, html.EscapeString(subject), html.EscapeString(intro))
	for _, i := range issues {
		body.WriteString("		<tr><td>" + html.EscapeString(i.Code) + "</td><td>" + html.EscapeString(i.Message) + "</td></tr>\n")
	}
	fmt.Fprintf(&body, emailTail, rep.ID, rep.Kind, rep.StartedAt.Format("2006-01-02 15:04:05"))

	return message{subject: subject, text: text.String(), html: body.String()}
}

// notifyError logs the error and sends an email notification to alert recipients
func (s *Scheduler) notifyError(context string, err error) {
	s.logger.Error(context, zap.Error(err))

	if len(s.recipients.Alert) == 0 {
		return
	}

	subject := "⚠️ Erro no Scheduler - " + context
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	textBody := fmt.Sprintf("Contexto: %s\nErro: %v\nHorário: %s", context, err, timestamp)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<style>
		body { font-family: Arial, sans-serif; }
		.error-box { background-color: #ffebee; border-left: 4px solid #f44336; padding: 16px; margin: 20px 0; }
		.label { font-weight: bold; color: #333; }
		.value { color: #666; }
	</style>
</head>
<body>
	<h2 style="color: #f44336;">⚠️ Erro no Scheduler</h2>
	<div class="error-box">
		<p><span class="label">Contexto:</span> <span class="value">%s</span></p>
		<p><span class="label">Erro:</span> <span class="value">%s</span></p>
		<p><span class="label">Horário:</span> <span class="value">%s</span></p>
	</div>
</body>
</html>`, html.EscapeString(context), html.EscapeString(err.Error()), timestamp)

	if sendErr := s.email.Send(subject, textBody, htmlBody, s.recipients.Alert); sendErr != nil {
		s.logger.Error("failed to send error notification email",
			zap.Error(sendErr),
			zap.String("original_error_context", context),
		)
	}
}
