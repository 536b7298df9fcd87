package models

const defaultCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}

.cloze {
 font-weight: bold;
 color: blue;
}`

// NewBasicModel builds the front/back note type used for basic cards.
// One template, generated whenever the front field is non-empty.
func NewBasicModel(id int64, name string) *Model {
	return NewModel(id, name, Standard,
		[]Field{{Name: "Front"}, {Name: "Back"}},
		[]Template{{
			Name:        "Card 1",
			QuestionFmt: "{{Front}}",
			AnswerFmt:   "{{FrontSide}}\n\n<hr id=answer>\n\n{{Back}}",
		}},
		[]Requirement{{TemplateOrd: 0, Mode: MatchAll, FieldOrds: []int{0}}},
		defaultCSS,
	)
}

// NewClozeModel builds the cloze note type: a text field carrying the
// deletions and an extra field shown on the answer side.
func NewClozeModel(id int64, name string) *Model {
	return NewModel(id, name, Cloze,
		[]Field{{Name: "Text"}, {Name: "Extra"}},
		[]Template{{
			Name:        "Cloze",
			QuestionFmt: "{{cloze:Text}}",
			AnswerFmt:   "{{cloze:Text}}<br>\n{{Extra}}",
		}},
		nil,
		defaultCSS,
	)
}
