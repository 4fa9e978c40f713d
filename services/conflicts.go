package services

import (
	"github.com/camden-git/peoplegraph/models"
	"github.com/facette/natsort"
)

// MergeField names one of the person fields a merge resolves.
type MergeField string

const (
	FieldName            MergeField = "name"
	FieldCompany         MergeField = "company"
	FieldHobbies         MergeField = "hobbies"
	FieldBirthday        MergeField = "birthday"
	FieldFirstMet        MergeField = "first_met"
	FieldFirstMetContext MergeField = "first_met_context"
)

// MergeableFields is the fixed field set, in the order conflicts are reported.
var MergeableFields = []MergeField{
	FieldName, FieldCompany, FieldHobbies, FieldBirthday, FieldFirstMet, FieldFirstMetContext,
}

// Valid reports whether f is one of MergeableFields.
func (f MergeField) Valid() bool {
	switch f {
	case FieldName, FieldCompany, FieldHobbies, FieldBirthday, FieldFirstMet, FieldFirstMetContext:
		return true
	}
	return false
}

func (f MergeField) get(p *models.Person) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldCompany:
		return p.Company
	case FieldHobbies:
		return p.Hobbies
	case FieldBirthday:
		return p.Birthday
	case FieldFirstMet:
		return p.FirstMet
	case FieldFirstMetContext:
		return p.FirstMetContext
	}
	return ""
}

func (f MergeField) set(p *models.Person, v string) {
	switch f {
	case FieldName:
		p.Name = v
	case FieldCompany:
		p.Company = v
	case FieldHobbies:
		p.Hobbies = v
	case FieldBirthday:
		p.Birthday = v
	case FieldFirstMet:
		p.FirstMet = v
	case FieldFirstMetContext:
		p.FirstMetContext = v
	}
}

// FieldChoice says which side's value a merged field keeps.
type FieldChoice string

const (
	KeepTarget FieldChoice = "keep_target"
	TakeSource FieldChoice = "take_source"
)

// Valid reports whether c is KeepTarget or TakeSource.
func (c FieldChoice) Valid() bool {
	return c == KeepTarget || c == TakeSource
}

// MergeConflict is one field where target and source disagree
type MergeConflict struct {
	Field          MergeField `json:"field"`
	TargetValue    string     `json:"target_value"`
	SourceValue    string     `json:"source_value"`
	RequiresChoice bool       `json:"requires_choice"`
}

// MergePreview describes what merging source into target would do
type MergePreview struct {
	TargetID                string          `json:"target_id"`
	SourceID                string          `json:"source_id"`
	Conflicts               []MergeConflict `json:"conflicts"`
	ConnectionsToRewrite    []string        `json:"connections_to_rewrite"`
	ConnectionsToDelete     []string        `json:"connections_to_delete"`
	RewriteCount            int             `json:"rewrite_count"`
	DeleteCount             int             `json:"delete_count"`
	AffectedRosterIDs       []string        `json:"affected_roster_ids"`
	CombinedAppearanceCount int             `json:"combined_appearance_count"`
}

// AnalyzeConflicts lists every mergeable field whose values differ. Only
// fields set on both sides need a choice.
func AnalyzeConflicts(target, source models.Person) []MergeConflict {
	conflicts := []MergeConflict{}
	for _, f := range MergeableFields {
		tv, sv := f.get(&target), f.get(&source)
		if tv == sv {
			continue
		}
		conflicts = append(conflicts, MergeConflict{
			Field:          f,
			TargetValue:    tv,
			SourceValue:    sv,
			RequiresChoice: tv != "" && sv != "",
		})
	}
	return conflicts
}

// PreviewMerge classifies the source's connections and summarizes the merge
// without touching storage.
func PreviewMerge(target, source models.Person, connections []models.Connection) MergePreview {
	preview := MergePreview{
		TargetID:                target.ID,
		SourceID:                source.ID,
		Conflicts:               AnalyzeConflicts(target, source),
		ConnectionsToRewrite:    []string{},
		ConnectionsToDelete:     []string{},
		AffectedRosterIDs:       unionRosters(target.SourceImageIDs, source.SourceImageIDs),
		CombinedAppearanceCount: len(target.FaceAppearances) + len(source.FaceAppearances),
	}
	for _, step := range planRewiring(target.ID, source.ID, connections) {
		if step.action == actionRewrite {
			preview.ConnectionsToRewrite = append(preview.ConnectionsToRewrite, step.conn.ID)
		} else {
			preview.ConnectionsToDelete = append(preview.ConnectionsToDelete, step.conn.ID)
		}
	}
	preview.RewriteCount = len(preview.ConnectionsToRewrite)
	preview.DeleteCount = len(preview.ConnectionsToDelete)
	return preview
}

type rewireAction int

const (
	actionRewrite rewireAction = iota
	actionDropDuplicate
	actionDropSelfLoop
)

type rewireStep struct {
	conn        models.Connection
	counterpart string
	action      rewireAction
}

// planRewiring decides the fate of every connection incident to source.
// A counterpart already linked to target, or linked by an earlier rewrite in
// the same plan, makes the connection a duplicate. Connections whose
// counterpart is target itself would become self-loops.
func planRewiring(targetID, sourceID string, connections []models.Connection) []rewireStep {
	linked := make(map[string]bool)
	for i := range connections {
		c := &connections[i]
		if c.Touches(sourceID) {
			continue
		}
		if other, ok := c.Counterpart(targetID); ok && other != targetID {
			linked[other] = true
		}
	}

	var steps []rewireStep
	seen := make(map[string]bool)
	for _, c := range connections {
		if !c.Touches(sourceID) || seen[c.ID] {
			continue
		}
		seen[c.ID] = true

		other, _ := c.Counterpart(sourceID)
		step := rewireStep{conn: c, counterpart: other}
		switch {
		case other == targetID || other == sourceID:
			step.action = actionDropSelfLoop
		case linked[other]:
			step.action = actionDropDuplicate
		default:
			step.action = actionRewrite
			linked[other] = true
			if step.conn.FromPersonID == sourceID {
				step.conn.FromPersonID = targetID
			}
			if step.conn.ToPersonID == sourceID {
				step.conn.ToPersonID = targetID
			}
		}
		steps = append(steps, step)
	}
	return steps
}

// unionRosters merges two roster-id lists without duplicates, naturally sorted.
func unionRosters(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	union := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	natsort.Sort(union)
	return union
}
