package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grounder/internal/adapter/analyzer"
	"grounder/internal/adapter/gate"
	"grounder/internal/adapter/merge"
	"grounder/internal/adapter/planner"
	"grounder/internal/adapter/ranker"
	"grounder/internal/adapter/search"
	"grounder/internal/adapter/webfetch"
	"grounder/internal/domain"
	"grounder/internal/port"
)

// Stage identifies one state of the answering pipeline. The pipeline runs
// Reasoning through Done in a fixed order; the gate is the only
// conditional edge and both branches converge at Generate.
type Stage int

const (
	StageReasoning Stage = iota
	StageContextPrep
	StageDraft
	StageGate
	StagePlan
	StageSearch
	StageFetch
	StageRank
	StageMerge
	StageGenerate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageReasoning:
		return "reasoning"
	case StageContextPrep:
		return "context_prep"
	case StageDraft:
		return "draft"
	case StageGate:
		return "gate"
	case StagePlan:
		return "plan"
	case StageSearch:
		return "search"
	case StageFetch:
		return "fetch"
	case StageRank:
		return "rank"
	case StageMerge:
		return "merge"
	case StageGenerate:
		return "generate"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

const answerSystemPrompt = "You are a careful assistant. Answer the question using only the " +
	"provided sources. When the sources do not contain the answer, say so " +
	"plainly instead of guessing. Keep the answer concise."

const draftSystemPrompt = "Write a short draft answer to the question from the provided " +
	"local notes. If the notes are insufficient, say what is missing."

const apologyText = "I'm sorry, I wasn't able to generate an answer this time."

const noEvidenceText = "I could not find any relevant evidence for that question."

// AnswerUseCase orchestrates one conversational turn: normalize the
// question, gather local evidence, decide sufficiency, optionally run the
// extended web path, and produce a grounded answer with citations.
type AnswerUseCase struct {
	tokenizer *analyzer.Tokenizer
	local     port.EvidenceSource
	gate      *gate.Gate
	planner   *planner.Planner
	executor  *search.Executor
	fetcher   *webfetch.Fetcher
	ranker    *ranker.Ranker
	merger    *merge.Merger
	generator port.Generator
	budget    domain.Budget
	extended  bool
	logger    *zap.Logger
}

// Options wires the pipeline components. Generator is optional; without
// one the assembled context itself becomes the answer body. Local may be
// nil when no index exists yet.
type Options struct {
	Tokenizer *analyzer.Tokenizer
	Local     port.EvidenceSource
	Gate      *gate.Gate
	Planner   *planner.Planner
	Executor  *search.Executor
	Fetcher   *webfetch.Fetcher
	Ranker    *ranker.Ranker
	Merger    *merge.Merger
	Generator port.Generator
	Budget    domain.Budget
	Extended  bool
	Logger    *zap.Logger
}

func NewAnswerUseCase(opts Options) *AnswerUseCase {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AnswerUseCase{
		tokenizer: opts.Tokenizer,
		local:     opts.Local,
		gate:      opts.Gate,
		planner:   opts.Planner,
		executor:  opts.Executor,
		fetcher:   opts.Fetcher,
		ranker:    opts.Ranker,
		merger:    opts.Merger,
		generator: opts.Generator,
		budget:    opts.Budget,
		extended:  opts.Extended,
		logger:    opts.Logger,
	}
}

// turnState is the per-request scratch space. A fresh value is built for
// every call so turns never leak into each other.
type turnState struct {
	requestID    string
	messages     []domain.Message
	retrieval    context.Context
	endRetrieval context.CancelFunc
	query        domain.Query
	local        []domain.EvidenceItem
	localContext string
	draft        string
	decision     domain.Decision
	deficit      domain.Deficit
	plan         domain.SearchPlan
	results      []domain.SearchResult
	passages     []domain.Passage
	ranked       []domain.EvidenceItem
	merged       domain.MergedContext
	answer       string
}

// Answer runs the state machine for the latest utterance in messages.
// Entry state is Reasoning, terminal state is Done; the only conditional
// edge is the gate's decision.
func (u *AnswerUseCase) Answer(ctx context.Context, messages []domain.Message) (domain.Answer, error) {
	state := &turnState{requestID: uuid.NewString(), messages: messages}
	log := u.logger.With(zap.String("request_id", state.requestID))

	for stage := StageReasoning; stage != StageDone; {
		next, err := u.step(ctx, stage, state, log)
		if err != nil {
			if state.endRetrieval != nil {
				state.endRetrieval()
			}
			return domain.Answer{}, err
		}
		log.Debug("stage complete", zap.Stringer("stage", stage), zap.Stringer("next", next))
		stage = next
	}
	if state.endRetrieval != nil {
		state.endRetrieval()
	}

	return domain.Answer{
		RequestID: state.requestID,
		Text:      state.answer,
		Citations: state.merged.Citations,
		Decision:  state.decision,
	}, nil
}

func (u *AnswerUseCase) step(ctx context.Context, stage Stage, state *turnState, log *zap.Logger) (Stage, error) {
	switch stage {
	case StageReasoning:
		state.query = u.tokenizer.NewQuery(state.messages)
		if state.query.Text == "" {
			return StageDone, fmt.Errorf("empty question")
		}
		return StageContextPrep, nil

	case StageContextPrep:
		if u.local != nil {
			items, err := u.local.Collect(ctx, state.query)
			if err != nil {
				log.Warn("local evidence collection failed", zap.Error(err))
			} else {
				state.local = items
			}
		}
		state.localContext = joinEvidence(state.local, u.budget.MaxContextChars)
		return StageDraft, nil

	case StageDraft:
		u.draft(ctx, state, log)
		return StageGate, nil

	case StageGate:
		state.decision, state.deficit = u.gate.Decide(state.query, state.local)
		log.Info("sufficiency decided",
			zap.String("decision", string(state.decision)),
			zap.String("deficit", string(state.deficit)))
		switch state.decision {
		case domain.DecisionSufficient:
			return StageGenerate, nil
		default:
			if u.extended {
				return StagePlan, nil
			}
			// Web retrieval disabled: fall through to rank and merge
			// whatever local evidence exists.
			return StageRank, nil
		}

	case StagePlan:
		// The retrieval deadline spans search and fetch together.
		state.retrieval = ctx
		state.endRetrieval = func() {}
		if u.budget.MaxMS > 0 {
			state.retrieval, state.endRetrieval = context.WithTimeout(ctx,
				time.Duration(u.budget.MaxMS)*time.Millisecond)
		}
		state.plan = u.planner.BuildPlan(state.query.Text)
		log.Debug("plan built",
			zap.Strings("variants", state.plan.Variants),
			zap.Bool("recent", state.plan.Recent))
		return StageSearch, nil

	case StageSearch:
		if u.executor != nil {
			state.results = u.executor.Execute(state.retrieval, state.plan, u.budget)
		}
		log.Debug("search finished", zap.Int("results", len(state.results)))
		return StageFetch, nil

	case StageFetch:
		if u.fetcher != nil && len(state.results) > 0 {
			state.passages = u.fetchPassages(state.retrieval, state)
		}
		log.Debug("fetch finished", zap.Int("passages", len(state.passages)))
		return StageRank, nil

	case StageRank:
		state.ranked = u.ranker.Rank(state.query.Text, state.local, state.passages)
		log.Debug("evidence ranked", zap.Int("kept", len(state.ranked)))
		return StageMerge, nil

	case StageMerge:
		state.merged = u.merger.Merge(state.ranked, state.localContext, time.Now())
		log.Debug("evidence merged",
			zap.Int("context_chars", len(state.merged.Context)),
			zap.Int("citations", len(state.merged.Citations)))
		return StageGenerate, nil

	case StageGenerate:
		state.answer = u.generate(ctx, state, log)
		return StageDone, nil

	default:
		return StageDone, fmt.Errorf("unexpected stage %s", stage)
	}
}

// draft writes a preliminary answer from local context when a generator
// is configured. Failures and the no-generator case pass through; the
// draft only enriches the final generation prompt.
func (u *AnswerUseCase) draft(ctx context.Context, state *turnState, log *zap.Logger) {
	if u.generator == nil || state.localContext == "" {
		return
	}
	user := fmt.Sprintf("Notes:\n%s\n\nQuestion: %s", state.localContext, state.query.Text)
	text, err := u.generator.GenerateWithSystem(ctx, draftSystemPrompt, user)
	if err != nil {
		log.Warn("draft generation failed", zap.Error(err))
		return
	}
	state.draft = strings.TrimSpace(text)
}

// generate produces the answer body. Without a generator the assembled
// context is returned as an extractive answer; a generator failure yields
// a fixed apology rather than an error so citations still reach the user.
func (u *AnswerUseCase) generate(ctx context.Context, state *turnState, log *zap.Logger) string {
	evidence := state.merged.Context
	if evidence == "" {
		evidence = state.localContext
	}
	if evidence == "" {
		return noEvidenceText
	}
	if u.generator == nil {
		return evidence
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Sources:\n%s\n\n", evidence)
	if state.draft != "" {
		fmt.Fprintf(&sb, "Draft answer (may be incomplete):\n%s\n\n", state.draft)
	}
	fmt.Fprintf(&sb, "Question: %s", state.query.Text)

	text, err := u.generator.GenerateWithSystem(ctx, answerSystemPrompt, sb.String())
	if err != nil {
		log.Warn("generation failed", zap.Error(err))
		return apologyText
	}
	return strings.TrimSpace(text)
}

// fetchPassages runs the fetcher over the search result URLs and carries
// provider dates onto the extracted passages.
func (u *AnswerUseCase) fetchPassages(ctx context.Context, state *turnState) []domain.Passage {
	urls := make([]string, 0, len(state.results))
	dates := make(map[string]string, len(state.results))
	for _, r := range state.results {
		urls = append(urls, r.URL)
		if r.Date != "" {
			dates[r.URL] = r.Date
		}
	}

	passages := u.fetcher.FetchPassages(ctx, urls, u.budget)
	for i := range passages {
		if d, ok := dates[passages[i].URL]; ok {
			passages[i].Date = d
		}
	}
	return passages
}

// joinEvidence concatenates local passage texts in supplier order, bounded
// by the context budget. This is the context for the sufficient branch and
// the merge fallback for the insufficient one.
func joinEvidence(items []domain.EvidenceItem, maxChars int) string {
	var parts []string
	for _, item := range items {
		if t := strings.TrimSpace(item.Text); t != "" {
			parts = append(parts, t)
		}
	}
	joined := strings.Join(parts, "\n")
	if maxChars > 0 {
		joined = merge.Truncate(joined, maxChars)
	}
	return joined
}
