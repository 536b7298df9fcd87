// Package exporter runs the export pipeline: card records in, a
// finished package archive out.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/perthro/internal/archive"
	"github.com/starford/perthro/internal/cloze"
	"github.com/starford/perthro/internal/collection"
	"github.com/starford/perthro/internal/ids"
	"github.com/starford/perthro/internal/media"
	"github.com/starford/perthro/internal/models"
)

// State names one pipeline stage. States are never re-entered within a
// single export.
type State string

const (
	StateCollecting         State = "collecting"
	StateValidating         State = "validating"
	StateBuildingCollection State = "building_collection"
	StateResolvingMedia     State = "resolving_media"
	StateAssembling         State = "assembling"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Stats summarizes a finished export, including how much requested
// media actually made it into the archive.
type Stats struct {
	TotalNotes     int `json:"total_notes"`
	TotalCards     int `json:"total_cards"`
	TotalClozes    int `json:"total_clozes"`
	MediaRequested int `json:"media_requested"`
	MediaEmbedded  int `json:"media_embedded"`
}

// Result is a successful export.
type Result struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	Stats    Stats  `json:"stats"`
}

// Options configures an Exporter. Zero values get working defaults.
type Options struct {
	DeckName    string
	Filename    string
	Alloc       ids.Allocator
	Resolver    media.Resolver
	Client      *http.Client
	Concurrency int
	Logger      *slog.Logger
}

// Exporter runs one sequential pipeline per Export call. An Exporter
// may be reused; each call builds a fresh entity graph.
type Exporter struct {
	opts      Options
	builder   *collection.Builder
	assembler *archive.Assembler
	fetcher   *media.Fetcher
	logger    *slog.Logger
}

// New creates an Exporter.
func New(opts Options) *Exporter {
	if opts.Alloc == nil {
		opts.Alloc = ids.NewRandom()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DeckName == "" {
		opts.DeckName = "Export"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Exporter{
		opts:      opts,
		builder:   collection.NewBuilder(opts.Alloc, opts.Logger),
		assembler: archive.NewAssembler(opts.Logger),
		fetcher:   media.NewFetcher(opts.Client, opts.Resolver, opts.Logger, opts.Concurrency),
		logger:    opts.Logger,
	}
}

// Export runs the whole pipeline over records. Validation problems and
// fatal build errors abort with no partial output; individual media
// failures only shrink the embedded set.
func (e *Exporter) Export(ctx context.Context, records []Record) (*Result, error) {
	state := StateCollecting
	fail := func(err error) (*Result, error) {
		e.logger.Error("export failed",
			slog.String("state", string(state)),
			slog.String("error", err.Error()))
		return nil, err
	}
	advance := func(next State) {
		state = next
		e.logger.Debug("export state", slog.String("state", string(state)))
	}

	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fail(fmt.Errorf("record %d: %w", i, err))
		}
	}

	advance(StateValidating)
	totalClozes := 0
	for i, r := range records {
		if r.Kind != KindCloze {
			continue
		}
		v := cloze.Validate(r.Text)
		if !v.Valid {
			return fail(fmt.Errorf("record %d: %w", i, v.Err))
		}
		totalClozes += len(cloze.Numbers(r.Text))
	}

	g, err := e.buildGraph(records)
	if err != nil {
		return fail(err)
	}

	advance(StateBuildingCollection)
	colBytes, err := e.builder.Build(g.decks, g.models)
	if err != nil {
		return fail(err)
	}

	advance(StateResolvingMedia)
	fetched := e.fetcher.FetchAll(ctx, g.planner.Entries())

	advance(StateAssembling)
	assembled, err := e.assembler.Assemble(colBytes, fetched, collection.SchemaVersion)
	if err != nil {
		return fail(err)
	}

	advance(StateDone)
	res := &Result{
		Filename: e.filename(),
		Data:     assembled.Data,
		Stats: Stats{
			TotalNotes:     g.noteCount,
			TotalCards:     g.cardCount,
			TotalClozes:    totalClozes,
			MediaRequested: assembled.MediaRequested,
			MediaEmbedded:  assembled.MediaEmbedded,
		},
	}
	e.logger.Info("export complete",
		slog.String("filename", res.Filename),
		slog.Int("notes", res.Stats.TotalNotes),
		slog.Int("cards", res.Stats.TotalCards))
	return res, nil
}

// graph is the per-export entity set.
type graph struct {
	decks     []*models.Deck
	models    []*models.Model
	planner   *media.Planner
	noteCount int
	cardCount int
}

// buildGraph turns records into decks, notes, and a media plan. Media
// references become content-addressed filenames in the field markup;
// data: URIs stay inline.
func (e *Exporter) buildGraph(records []Record) (*graph, error) {
	g := &graph{planner: media.NewPlanner()}

	var basicModel, clozeModel *models.Model
	decksByName := make(map[string]*models.Deck)
	deckFor := func(name string) *models.Deck {
		if name == "" {
			name = e.opts.DeckName
		}
		if d, ok := decksByName[name]; ok {
			return d
		}
		d := models.NewDeck(e.opts.Alloc.Next(), name)
		decksByName[name] = d
		g.decks = append(g.decks, d)
		return d
	}

	for i, r := range records {
		imageMarkup, audioMarkup := e.mediaMarkup(g.planner, r)

		var note *models.Note
		var err error
		switch r.Kind {
		case KindCloze:
			if clozeModel == nil {
				clozeModel = models.NewClozeModel(e.opts.Alloc.Next(), "Cloze")
				g.models = append(g.models, clozeModel)
			}
			text := cloze.Convert(r.Text) + imageMarkup + audioMarkup
			note, err = clozeModel.Note(text, r.Note)
		default:
			if basicModel == nil {
				basicModel = models.NewBasicModel(e.opts.Alloc.Next(), "Basic")
				g.models = append(g.models, basicModel)
			}
			back := r.Back + imageMarkup + audioMarkup
			if r.Note != "" {
				back += "<br><i>" + r.Note + "</i>"
			}
			note, err = basicModel.Note(r.Front, back)
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.GUID != "" {
			note.SetGUID(r.GUID)
		}
		for _, tag := range r.Tags {
			note.AddTag(tag)
		}
		deckFor(r.Deck).AddNote(note)
		g.noteCount++
		g.cardCount += len(note.CardOrdinals())
	}

	if len(g.decks) == 0 {
		g.decks = append(g.decks, models.NewDeck(e.opts.Alloc.Next(), e.opts.DeckName))
	}
	return g, nil
}

// mediaMarkup plans a record's media references and renders the field
// markup pointing at the planned filenames. Unplanned references (data:
// URIs) keep the original reference inline.
func (e *Exporter) mediaMarkup(planner *media.Planner, r Record) (image, audio string) {
	if ref, ok := models.IngestMedia(r.Image, models.RoleImage); ok {
		src := ref.Raw
		if name, planned := planner.Plan(ref); planned {
			src = name
		}
		image = fmt.Sprintf(`<br><img src="%s">`, src)
	}
	if ref, ok := models.IngestMedia(r.Audio, models.RoleAudio); ok {
		if name, planned := planner.Plan(ref); planned {
			audio = fmt.Sprintf("[sound:%s]", name)
		}
	}
	return image, audio
}

// filename returns the configured output name or one derived from the
// default deck name.
func (e *Exporter) filename() string {
	if e.opts.Filename != "" {
		return e.opts.Filename
	}
	name := strings.ToLower(strings.ReplaceAll(e.opts.DeckName, " ", "-"))
	return name + ".apkg"
}
