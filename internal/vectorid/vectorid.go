// Package vectorid encodes and decodes the opaque ids stored in the vector index.
//
// Two forms are accepted on read:
//
//	skill_<skillID>   a skill with no specific holder
//	<assignmentID>    one user's skill assignment row
//
// The composite form skill_<skillID>_user_<userID> is only written; hits
// carrying it are resolved from their metadata instead.
package vectorid

import (
	"strconv"
	"strings"
)

const skillPrefix = "skill_"

// Kind tells which id grammar matched.
type Kind int

const (
	// KindInvalid means the id matched no accepted grammar.
	KindInvalid Kind = iota
	// KindSkill is skill_<skillID>.
	KindSkill
	// KindAssignment is a bare skill assignment id.
	KindAssignment
)

func (k Kind) String() string {
	switch k {
	case KindSkill:
		return "skill"
	case KindAssignment:
		return "assignment"
	default:
		return "invalid"
	}
}

// ID is a decoded vector id. Value is the skill id for KindSkill and the
// assignment id for KindAssignment.
type ID struct {
	Kind  Kind
	Value int64
}

// Skill returns the id of a skill-level vector.
func Skill(skillID int64) string {
	return skillPrefix + strconv.FormatInt(skillID, 10)
}

// Assignment returns the id of a per-assignment vector.
func Assignment(assignmentID int64) string {
	return strconv.FormatInt(assignmentID, 10)
}

// SkillUser returns the composite id used by metadata-carrying backends.
func SkillUser(skillID, userID int64) string {
	return Skill(skillID) + "_user_" + strconv.FormatInt(userID, 10)
}

// Parse decodes id. It never panics; anything outside the two accepted
// grammars is KindInvalid with ok false.
func Parse(id string) (ID, bool) {
	if rest, found := strings.CutPrefix(id, skillPrefix); found {
		if !isDigits(rest) {
			return ID{}, false
		}
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return ID{}, false
		}
		return ID{Kind: KindSkill, Value: n}, true
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return ID{}, false
	}
	return ID{Kind: KindAssignment, Value: n}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
