package scheduler

import (
	"context"
	"fmt"

	briefdomain "github.com/kentsubra71/keystone/internal/brief/domain"
	credentialdomain "github.com/kentsubra71/keystone/internal/credential/domain"
	mailusecase "github.com/kentsubra71/keystone/internal/mail/usecase"
	nudgedomain "github.com/kentsubra71/keystone/internal/nudge/domain"
	sheetusecase "github.com/kentsubra71/keystone/internal/sheet/usecase"

	"github.com/charmbracelet/log"
)

type SheetReconciler interface {
	Reconcile(ctx context.Context) (*sheetusecase.ReconcileResult, error)
}

type TokenProvider interface {
	ValidAccessToken(ctx context.Context) (*credentialdomain.AccessToken, error)
}

type MailIngester interface {
	Ingest(ctx context.Context, accessToken, ownerEmail string) (*mailusecase.IngestResult, error)
}

type NudgeGenerator interface {
	Generate(ctx context.Context) ([]*nudgedomain.Nudge, error)
}

type BriefGenerator interface {
	Generate(ctx context.Context) (*briefdomain.Brief, error)
}

// Jobs composes the pipeline units every trigger (cron endpoint, CLI, ticker, push) runs.
type Jobs struct {
	reconciler SheetReconciler
	tokens     TokenProvider
	ingester   MailIngester
	nudges     NudgeGenerator
	briefs     BriefGenerator
	logger     *log.Logger
}

func NewJobs(reconciler SheetReconciler, tokens TokenProvider, ingester MailIngester, nudges NudgeGenerator, briefs BriefGenerator, logger *log.Logger) *Jobs {
	return &Jobs{
		reconciler: reconciler,
		tokens:     tokens,
		ingester:   ingester,
		nudges:     nudges,
		briefs:     briefs,
		logger:     logger.WithPrefix("Jobs"),
	}
}

func (j *Jobs) SyncSheet(ctx context.Context) (*sheetusecase.ReconcileResult, error) {
	return j.reconciler.Reconcile(ctx)
}

// SyncMail obtains a valid access token and runs one ingestion cycle with it.
func (j *Jobs) SyncMail(ctx context.Context) (*mailusecase.IngestResult, error) {
	tok, err := j.tokens.ValidAccessToken(ctx)
	if err != nil {
		err = fmt.Errorf("get access token: %w", err)
		j.logger.Error("mail sync aborted", "err", err)
		return &mailusecase.IngestResult{Errors: []string{err.Error()}}, err
	}
	return j.ingester.Ingest(ctx, tok.Token, tok.OwnerEmail)
}

func (j *Jobs) GenerateNudges(ctx context.Context) ([]*nudgedomain.Nudge, error) {
	return j.nudges.Generate(ctx)
}

func (j *Jobs) GenerateBrief(ctx context.Context) (*briefdomain.Brief, error) {
	return j.briefs.Generate(ctx)
}
