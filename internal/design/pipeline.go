package design

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"roomcraft/internal/artifact"
	"roomcraft/internal/events"
	"roomcraft/internal/storage"
	"roomcraft/internal/synthesis"
)

// NoBudgetCeiling is the documented "effectively unlimited" price ceiling
// substituted when the caller supplies no budget. Every price is below it.
const NoBudgetCeiling = math.MaxFloat64

// Pipeline stages, published to the event broker in execution order.
const (
	StageValidatingInput      = "validating_input"
	StageResolvingPreferences = "resolving_preferences"
	StageMatchingCatalog      = "matching_catalog"
	StageGatheringReferences  = "gathering_references"
	StageSynthesizingImage    = "synthesizing_image"
	StageStoringArtifact      = "storing_artifact"
	StageRecordingResult      = "recording_result"
	StageDone                 = "done"
	StageFailed               = "failed"
)

// Upload is one temporary uploaded room photo.
type Upload struct {
	Path        string
	Filename    string
	ContentType string
}

// Request carries the inputs for one generation run.
type Request struct {
	RunID      string
	UserID     string
	RoomTypeID string
	// Budget is the exclusive price ceiling. Callers with no budget must pass
	// NoBudgetCeiling explicitly.
	Budget  float64
	Uploads []Upload
}

// Result is the outcome of a successful run.
type Result struct {
	ImageURL       string
	Furniture      storage.Furniture
	Recommendation storage.Recommendation
	Design         storage.Design
}

// Pipeline orchestrates one design generation end to end: preference
// resolution, catalog matching, reference gathering, synthesis, artifact
// storage and the linked recommendation/design write.
type Pipeline struct {
	Store     storage.Store
	Synth     synthesis.Synthesizer
	Artifacts artifact.Store
	Fetcher   *ReferenceFetcher
	Events    *events.Broker

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewPipeline wires a pipeline with a time-seeded selection source.
func NewPipeline(store storage.Store, synth synthesis.Synthesizer, artifacts artifact.Store, fetcher *ReferenceFetcher, broker *events.Broker) *Pipeline {
	return &Pipeline{
		Store:     store,
		Synth:     synth,
		Artifacts: artifacts,
		Fetcher:   fetcher,
		Events:    broker,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRand replaces the selection source. Tests use a seeded source to make
// candidate selection deterministic.
func (p *Pipeline) SetRand(r *rand.Rand) {
	p.randMu.Lock()
	p.rand = r
	p.randMu.Unlock()
}

func (p *Pipeline) pick(n int) int {
	p.randMu.Lock()
	defer p.randMu.Unlock()
	if p.rand == nil {
		p.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.rand.Intn(n)
}

func (p *Pipeline) publish(req Request, stage string) {
	if p.Events == nil {
		return
	}
	p.Events.Publish(events.Event{RunID: req.RunID, UserID: req.UserID, Stage: stage})
}

// Run executes every stage strictly in order. Each failure is translated to
// exactly one of the domain error types before it escapes.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	result, err := p.run(ctx, req)
	if err != nil {
		p.publish(req, StageFailed)
		return Result{}, err
	}
	p.publish(req, StageDone)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (Result, error) {
	p.publish(req, StageValidatingInput)
	if len(req.Uploads) == 0 {
		return Result{}, ErrNoImage
	}
	if strings.TrimSpace(req.RoomTypeID) == "" {
		return Result{}, ErrNoRoomType
	}
	if req.UserID == "" {
		return Result{}, ErrNoUser
	}

	p.publish(req, StageResolvingPreferences)
	pref, err := p.resolvePreference(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}

	p.publish(req, StageMatchingCatalog)
	match, err := p.matchCatalog(ctx, req.RoomTypeID, req.Budget, pref.ColorID)
	if err != nil {
		return Result{}, err
	}

	p.publish(req, StageGatheringReferences)
	images, err := p.Fetcher.Gather(ctx, req.Uploads, match.Candidates)
	if err != nil {
		return Result{}, &PersistenceError{Err: err}
	}

	p.publish(req, StageSynthesizingImage)
	prompt := BuildPrompt(match.Selected.Name, pref.Vibe)
	imageData, err := p.Synth.Edit(ctx, synthesis.Request{
		Prompt: prompt,
		Images: images,
		Size:   synthesis.DefaultSize,
		Count:  1,
	})
	if err != nil {
		return Result{}, &SynthesisError{Err: err}
	}

	p.publish(req, StageStoringArtifact)
	ref, err := p.Artifacts.Save(ctx, req.UserID, imageData)
	if err != nil {
		return Result{}, &PersistenceError{Err: fmt.Errorf("store artifact: %w", err)}
	}

	p.publish(req, StageRecordingResult)
	rec := storage.Recommendation{
		UserID:       req.UserID,
		FurnitureIDs: []string{match.Selected.ID},
		MaterialIDs:  []string{match.Selected.MaterialID},
	}
	design := storage.Design{
		FurnitureUsedID: match.Selected.ID,
		MaterialUsedID:  match.Selected.MaterialID,
		RoomTypeID:      req.RoomTypeID,
		Budget:          req.Budget,
		CreatedBy:       req.UserID,
		ModelURL:        ref.URL,
	}
	rec, design, err = p.Store.CreateRecommendedDesign(ctx, rec, design)
	if err != nil {
		return Result{}, &PersistenceError{Err: fmt.Errorf("record design: %w", err)}
	}

	return Result{
		ImageURL:       ref.URL,
		Furniture:      match.Selected,
		Recommendation: rec,
		Design:         design,
	}, nil
}

// resolvedPreference is the user's preference mapped to concrete catalog ids.
type resolvedPreference struct {
	ColorID string
	Vibe    string
}

// resolvePreference loads the user's saved preference. A missing preference
// record, or a color tone with no matching catalog color, resolves to the
// zero value rather than an error.
func (p *Pipeline) resolvePreference(ctx context.Context, userID string) (resolvedPreference, error) {
	pref, err := p.Store.PreferenceByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return resolvedPreference{}, nil
	}
	if err != nil {
		return resolvedPreference{}, &PersistenceError{Err: fmt.Errorf("load preference: %w", err)}
	}

	resolved := resolvedPreference{Vibe: pref.Vibe}
	if pref.ColorTone != "" {
		color, err := p.Store.ColorByTone(ctx, pref.ColorTone)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Unknown tone behaves as unset.
		case err != nil:
			return resolvedPreference{}, &PersistenceError{Err: fmt.Errorf("resolve color tone: %w", err)}
		default:
			resolved.ColorID = color.ID
		}
	}
	return resolved, nil
}

// Match holds the selected item together with the full candidate set; the
// candidates also feed the reference-image gathering stage.
type Match struct {
	Selected   storage.Furniture
	Candidates []storage.Furniture
}

// matchCatalog queries candidates for the room under the ceiling (and color,
// when resolved) and selects one uniformly at random.
func (p *Pipeline) matchCatalog(ctx context.Context, roomTypeID string, ceiling float64, colorID string) (Match, error) {
	candidates, err := p.Store.FindFurniture(ctx, storage.FurnitureFilter{
		RoomTypeID: roomTypeID,
		MaxPrice:   ceiling,
		ColorID:    colorID,
	})
	if err != nil {
		return Match{}, &PersistenceError{Err: fmt.Errorf("query catalog: %w", err)}
	}
	if len(candidates) == 0 {
		return Match{}, &NoMatchError{
			RoomTypeID:   roomTypeID,
			PriceCeiling: ceiling,
			ColorID:      colorID,
		}
	}

	return Match{
		Selected:   candidates[p.pick(len(candidates))],
		Candidates: candidates,
	}, nil
}

// BuildPrompt composes the synthesis prompt from the selected item and the
// optional vibe preference.
func BuildPrompt(furnitureName, vibe string) string {
	prompt := "merge room with " + furnitureName
	if strings.TrimSpace(vibe) != "" {
		prompt += " with schema " + vibe
	}
	return prompt
}
