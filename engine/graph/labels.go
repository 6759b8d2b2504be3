package graph

// Label constants hold the exact case-sensitive node labels used in every
// Cypher query this package issues. I3 requires label case to be exact
// (File, Directory, PROJECT); raw string literals elsewhere in the codebase
// are a lint violation caught by cmd/labellint.
const (
	LabelFile      = "File"
	LabelDirectory = "Directory"
	LabelProject   = "PROJECT"
	LabelEntity    = "Entity"
	LabelConcept   = "Concept"
	LabelTheme     = "Theme"
)

// Relationship type constants, same discipline as the label constants above.
const (
	RelContains   = "CONTAINS"
	RelBelongsTo  = "BELONGS_TO"
	RelHasConcept = "HAS_CONCEPT"
	RelHasTheme   = "HAS_THEME"
	RelImports    = "IMPORTS"
	RelDefines    = "DEFINES"
	RelCalls      = "CALLS"
)
