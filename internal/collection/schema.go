// Package collection serializes decks, models, notes, and cards into
// the SQLite database the target application imports. Table names,
// column sets, and the JSON blob shapes are an external contract;
// Verify enforces the invariants the importer checks.
package collection

import "encoding/json"

// SchemaVersion is the collection schema version the importer expects.
const SchemaVersion = 11

const schemaSQL = `
CREATE TABLE col (
	id     integer PRIMARY KEY,
	crt    integer NOT NULL,
	mod    integer NOT NULL,
	scm    integer NOT NULL,
	ver    integer NOT NULL,
	dty    integer NOT NULL,
	usn    integer NOT NULL,
	ls     integer NOT NULL,
	conf   text NOT NULL,
	models text NOT NULL,
	decks  text NOT NULL,
	dconf  text NOT NULL,
	tags   text NOT NULL
);

CREATE TABLE notes (
	id    integer PRIMARY KEY,
	guid  text NOT NULL,
	mid   integer NOT NULL,
	mod   integer NOT NULL,
	usn   integer NOT NULL,
	tags  text NOT NULL,
	flds  text NOT NULL,
	sfld  integer NOT NULL,
	csum  integer NOT NULL,
	flags integer NOT NULL,
	data  text NOT NULL
);

CREATE TABLE cards (
	id     integer PRIMARY KEY,
	nid    integer NOT NULL,
	did    integer NOT NULL,
	ord    integer NOT NULL,
	mod    integer NOT NULL,
	usn    integer NOT NULL,
	type   integer NOT NULL,
	queue  integer NOT NULL,
	due    integer NOT NULL,
	ivl    integer NOT NULL,
	factor integer NOT NULL,
	reps   integer NOT NULL,
	lapses integer NOT NULL,
	left   integer NOT NULL,
	odue   integer NOT NULL,
	odid   integer NOT NULL,
	flags  integer NOT NULL,
	data   text NOT NULL
);

CREATE TABLE revlog (
	id      integer PRIMARY KEY,
	cid     integer NOT NULL,
	usn     integer NOT NULL,
	ease    integer NOT NULL,
	ivl     integer NOT NULL,
	lastIvl integer NOT NULL,
	factor  integer NOT NULL,
	time    integer NOT NULL,
	type    integer NOT NULL
);

CREATE TABLE graves (
	usn  integer NOT NULL,
	oid  integer NOT NULL,
	type integer NOT NULL
);

CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`

// fieldJSON mirrors one entry of a model descriptor's "flds" array.
type fieldJSON struct {
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	Sticky bool     `json:"sticky"`
	RTL    bool     `json:"rtl"`
	Font   string   `json:"font"`
	Size   int      `json:"size"`
	Media  []string `json:"media"`
}

// templateJSON mirrors one entry of a model descriptor's "tmpls" array.
type templateJSON struct {
	Name  string      `json:"name"`
	Ord   int         `json:"ord"`
	Qfmt  string      `json:"qfmt"`
	Afmt  string      `json:"afmt"`
	Did   interface{} `json:"did"`
	Bqfmt string      `json:"bqfmt"`
	Bafmt string      `json:"bafmt"`
}

// modelJSON is the model descriptor stored under col.models, keyed by
// the model id rendered as a decimal string.
type modelJSON struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Type      int               `json:"type"`
	Mod       int64             `json:"mod"`
	Usn       int               `json:"usn"`
	SortField int               `json:"sortf"`
	DeckID    interface{}       `json:"did"`
	Templates []templateJSON    `json:"tmpls"`
	Fields    []fieldJSON       `json:"flds"`
	CSS       string            `json:"css"`
	LatexPre  string            `json:"latexPre"`
	LatexPost string            `json:"latexPost"`
	Req       [][]interface{}   `json:"req,omitempty"`
	Tags      []string          `json:"tags"`
	Vers      []json.RawMessage `json:"vers"`
}

// deckJSON is the deck descriptor stored under col.decks.
type deckJSON struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Desc             string  `json:"desc"`
	Mod              int64   `json:"mod"`
	Usn              int     `json:"usn"`
	Collapsed        bool    `json:"collapsed"`
	BrowserCollapsed bool    `json:"browserCollapsed"`
	NewToday         [2]int  `json:"newToday"`
	RevToday         [2]int  `json:"revToday"`
	LrnToday         [2]int  `json:"lrnToday"`
	TimeToday        [2]int  `json:"timeToday"`
	Dyn              int     `json:"dyn"`
	ExtendNew        int     `json:"extendNew"`
	ExtendRev        int     `json:"extendRev"`
	ConfID           int64   `json:"conf"`
}

const latexPre = `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}
`

const latexPost = `\end{document}`

// defaultConf is the col.conf blob; curModel is stitched in at build time.
const defaultConfFmt = `{"nextPos":1,"estTimes":true,"activeDecks":[1],"sortType":"noteFld",` +
	`"timeLim":0,"sortBackwards":false,"addToCur":true,"curDeck":1,"newBury":true,` +
	`"newSpread":0,"dueCounts":true,"curModel":"%d","collapseTime":1200}`

// defaultDconf is the single default deck-options group.
const defaultDconf = `{"1":{"id":1,"name":"Default","maxTaken":60,"timer":0,"autoplay":true,` +
	`"replayq":true,"mod":0,"usn":0,"dyn":0,` +
	`"new":{"delays":[1,10],"ints":[1,4,7],"initialFactor":2500,"separate":true,` +
	`"order":1,"perDay":20,"bury":true},` +
	`"rev":{"perDay":100,"ease4":1.3,"fuzz":0.05,"ivlFct":1,"maxIvl":36500,` +
	`"bury":true,"minSpace":1},` +
	`"lapse":{"delays":[10],"mult":0,"minInt":1,"leechFails":8,"leechAction":0}}}`
