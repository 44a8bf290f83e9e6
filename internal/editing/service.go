package editing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"regdraft/internal/document"
	apperrors "regdraft/internal/errors"
	"regdraft/internal/llm"
	"regdraft/internal/replace"
	"regdraft/internal/research"
	"regdraft/internal/selection"
	"regdraft/internal/storage"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// ResearchSource supplies the optional research block for a prompt.
type ResearchSource interface {
	Context(ctx context.Context, query string, topK int) string
}

type Deps struct {
	Sections  storage.SectionStore
	Edits     storage.EditLog
	Generator llm.Generator
	Research  ResearchSource
	Engine    *replace.Engine
	// Validator checks client-supplied selections; nil uses the default thresholds.
	Validator  *selection.Validator
	PendingTTL time.Duration
	Logger     logrus.FieldLogger
}

type pendingEdit struct {
	req    EditRequest
	edited string
	summ   string
}

// Service owns edit requests between generation and replacement. Edits to
// the same section are serialized but not arbitrated: the last one wins.
type Service struct {
	sections storage.SectionStore
	edits    storage.EditLog
	gen      llm.Generator
	research ResearchSource
	engine   *replace.Engine
	validate *selection.Validator
	prompts  *llm.PromptBuilder
	pending  *cache.Cache
	locks    sync.Map
	log      logrus.FieldLogger
}

func NewService(d Deps) *Service {
	if d.Engine == nil {
		d.Engine = replace.NewEngine(replace.DefaultOptions())
	}
	if d.Validator == nil {
		d.Validator = selection.NewValidator(selection.DefaultThresholds())
	}
	if d.PendingTTL <= 0 {
		d.PendingTTL = 30 * time.Minute
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &Service{
		sections: d.Sections,
		edits:    d.Edits,
		gen:      d.Generator,
		research: d.Research,
		engine:   d.Engine,
		validate: d.Validator,
		prompts:  &llm.PromptBuilder{},
		pending:  cache.New(d.PendingTTL, 2*d.PendingTTL),
		log:      d.Logger.WithField("component", "editing"),
	}
}

// Suggest generates an edit for the request target without touching the section.
func (s *Service) Suggest(ctx context.Context, req EditRequest) (Suggestion, error) {
	if err := req.Validate(); err != nil {
		return Suggestion{}, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	content, err := s.sections.GetSectionContent(ctx, req.SectionID)
	if err != nil {
		return Suggestion{}, err
	}
	var rejected bool
	switch {
	case req.Kind == selection.TargetSection || strings.TrimSpace(req.Target) == "":
		req.Kind = selection.TargetSection
		req.Target = content
	case !s.validate.IsSelectionValid(req.Target, content):
		s.log.WithFields(logrus.Fields{"request": req.ID, "section": req.SectionID}).
			Info("selection rejected, editing whole section")
		req.Kind = selection.TargetSection
		req.Target = content
		rejected = true
	default:
		req.Kind = selection.TargetSelected
	}
	if strings.TrimSpace(req.Target) == "" {
		return Suggestion{}, apperrors.ErrSelectionUnavailable
	}

	log := s.log.WithFields(logrus.Fields{"request": req.ID, "section": req.SectionID, "kind": req.Kind})

	var researchBlock string
	if req.Instructions.WantsResearch() && s.research != nil {
		researchBlock = s.research.Context(ctx, req.Instructions.ResearchQuery(req.Target), research.DefaultTopK)
	}

	prompt := s.prompts.BuildEditPrompt(req.Target, req.Instructions, researchBlock)
	edited, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("generation failed")
		if !apperrors.IsGeneration(err) {
			err = &apperrors.GenerationError{Provider: "unknown", Err: err}
		}
		return Suggestion{}, err
	}
	if strings.TrimSpace(edited) == "" {
		return Suggestion{}, &apperrors.GenerationError{Provider: "unknown", Err: fmt.Errorf("empty response")}
	}

	summary, err := llm.Summarize(ctx, s.gen, req.Target, edited)
	if err != nil {
		log.WithError(err).Warn("edit summary unavailable")
		summary = ""
	}

	s.pending.SetDefault(req.ID, &pendingEdit{req: req, edited: edited, summ: summary})
	log.Info("edit suggested")

	return Suggestion{
		RequestID:   req.ID,
		SectionID:   req.SectionID,
		Kind:        req.Kind,
		Original:    req.Target,
		EditedText:  edited,
		Summary:     summary,
		ChangesMade: llm.ChangesMade(req.Instructions),
		Rejected:    rejected,
	}, nil
}

// Apply splices edited in place of original. It backs the confirm action of
// the editor. On no match the section is untouched and the
// *errors.NoMatchError is returned as is.
func (s *Service) Apply(ctx context.Context, sectionID, original, edited string) (Outcome, error) {
	return s.apply(ctx, "", string(selection.TargetSelected), sectionID, original, edited, "")
}

// ApplyPending applies a suggestion by request id. A suggestion that hit no
// match stays pending so it can still be used for a whole-section replace.
func (s *Service) ApplyPending(ctx context.Context, requestID string) (Outcome, error) {
	p, err := s.lookup(requestID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.apply(ctx, p.req.ID, string(p.req.Kind), p.req.SectionID, p.req.Target, p.edited, p.summ)
	if err != nil {
		return out, err
	}
	s.pending.Delete(requestID)
	return out, nil
}

// ReplaceWholeSection overwrites the section. It is the user-confirmed
// fallback after a no match.
func (s *Service) ReplaceWholeSection(ctx context.Context, sectionID, edited string) (Outcome, error) {
	return s.replaceWhole(ctx, "", sectionID, edited, "")
}

// ReplacePending overwrites the section with a pending suggestion.
func (s *Service) ReplacePending(ctx context.Context, requestID string) (Outcome, error) {
	p, err := s.lookup(requestID)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.replaceWhole(ctx, p.req.ID, p.req.SectionID, p.edited, p.summ)
	if err != nil {
		return out, err
	}
	s.pending.Delete(requestID)
	return out, nil
}

// Discard drops a pending suggestion the user abandoned.
func (s *Service) Discard(requestID string) {
	s.pending.Delete(requestID)
}

// SuggestAndApply awaits generation and then matches synchronously.
func (s *Service) SuggestAndApply(ctx context.Context, req EditRequest) (Suggestion, Outcome, error) {
	sug, err := s.Suggest(ctx, req)
	if err != nil {
		return Suggestion{}, Outcome{}, err
	}
	out, err := s.ApplyPending(ctx, sug.RequestID)
	return sug, out, err
}

func (s *Service) lookup(requestID string) (*pendingEdit, error) {
	v, ok := s.pending.Get(requestID)
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "edit request", ID: requestID}
	}
	return v.(*pendingEdit), nil
}

func (s *Service) apply(ctx context.Context, requestID, kind, sectionID, original, edited, summary string) (Outcome, error) {
	if strings.TrimSpace(edited) == "" {
		return Outcome{}, &apperrors.ValidationError{Field: "edited", Message: "must not be empty"}
	}
	unlock := s.lock(sectionID)
	defer unlock()

	content, err := s.sections.GetSectionContent(ctx, sectionID)
	if err != nil {
		return Outcome{}, err
	}
	log := s.log.WithFields(logrus.Fields{"request": requestID, "section": sectionID})

	if original == content {
		return s.write(ctx, requestID, kind, sectionID, content, edited, replace.Result{
			Content:  edited,
			Span:     replace.Span{Start: 0, End: len(content)},
			Strategy: StrategyWholeSection,
		}, summary)
	}

	res, err := s.engine.Replace(content, original, edited)
	if err != nil {
		if nm, ok := apperrors.AsNoMatch(err); ok {
			log.WithFields(logrus.Fields{
				"preview":    nm.Preview,
				"similarity": nm.Similarity,
			}).Warn("no match for selected text")
		}
		return Outcome{}, err
	}
	log.WithField("strategy", res.Strategy).Debug("selection located")
	return s.write(ctx, requestID, kind, sectionID, content, edited, res, summary)
}

func (s *Service) replaceWhole(ctx context.Context, requestID, sectionID, edited, summary string) (Outcome, error) {
	if strings.TrimSpace(edited) == "" {
		return Outcome{}, &apperrors.ValidationError{Field: "edited", Message: "must not be empty"}
	}
	unlock := s.lock(sectionID)
	defer unlock()

	content, err := s.sections.GetSectionContent(ctx, sectionID)
	if err != nil {
		return Outcome{}, err
	}
	return s.write(ctx, requestID, string(selection.TargetSection), sectionID, content, edited, replace.Result{
		Content:  edited,
		Span:     replace.Span{Start: 0, End: len(content)},
		Strategy: StrategyWholeSection,
	}, summary)
}

func (s *Service) write(ctx context.Context, requestID, kind, sectionID, before, edited string, res replace.Result, summary string) (Outcome, error) {
	sec, err := s.sections.SetSectionContent(ctx, sectionID, res.Content)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to update section %s: %w", sectionID, err)
	}

	if s.edits != nil {
		_, err := s.edits.RecordEdit(ctx, storage.EditRecord{
			RequestID:  requestID,
			SectionID:  sectionID,
			Kind:       kind,
			Strategy:   res.Strategy,
			BeforeHash: document.SectionHash(sec.Title, before),
			AfterHash:  sec.Hash,
			Summary:    summary,
		})
		if err != nil {
			s.log.WithError(err).WithField("section", sectionID).Warn("failed to record edit")
		}
	}

	s.log.WithFields(logrus.Fields{
		"request":  requestID,
		"section":  sectionID,
		"strategy": res.Strategy,
	}).Info("edit applied")

	return Outcome{
		RequestID: requestID,
		SectionID: sectionID,
		Content:   sec.Content,
		Hash:      sec.Hash,
		Strategy:  res.Strategy,
		Span:      res.Span,
		Matched:   res.Matched,
	}, nil
}

func (s *Service) lock(sectionID string) func() {
	v, _ := s.locks.LoadOrStore(sectionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
