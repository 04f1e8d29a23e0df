package rule

import (
	"fmt"
	"sort"
	"strings"
)

// TGDString renders a rule in the canonical textual form:
// "R1(x, y) ∧ R2(y, _, z) → ∃w. R3(z, w)", with existentials listed only
// when the head introduces fresh variables. Rendering is driven by the same
// canonicalization used for the fingerprint, so the string is stable across
// equivalent variable namings but uses readable letters instead of v0/v1/…
func TGDString(r Rule) string {
	body, head, varIndex := Canonicalize(r)

	letters := canonicalLetters(varIndex)

	bodyParts := make([]string, len(body))
	for i, a := range body {
		bodyParts[i] = renderAtom(a, letters)
	}

	headParts := make([]string, len(head))
	for i, a := range head {
		headParts[i] = renderAtom(a, letters)
	}

	existentialLetters := existentialLettersFor(r, varIndex, letters)

	headSide := strings.Join(headParts, " ∧ ")
	if len(existentialLetters) > 0 {
		headSide = fmt.Sprintf("∃%s. %s", strings.Join(existentialLetters, ","), headSide)
	}

	return fmt.Sprintf("%s → %s", strings.Join(bodyParts, " ∧ "), headSide)
}

// CanonicalAtomStrings renders r's body and head atoms individually, using
// the same canonical variable letters TGDString assigns, so a rule's
// textual atom list and its TGD string always agree on variable naming.
func CanonicalAtomStrings(r Rule) (body, head []string) {
	bodyAtoms, headAtoms, varIndex := Canonicalize(r)
	letters := canonicalLetters(varIndex)

	body = make([]string, len(bodyAtoms))
	for i, a := range bodyAtoms {
		body[i] = renderAtom(a, letters)
	}
	head = make([]string, len(headAtoms))
	for i, a := range headAtoms {
		head[i] = renderAtom(a, letters)
	}
	return body, head
}

func renderAtom(a Atom, letters map[string]string) string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		if !t.IsVariable() {
			parts[i] = "_"
			continue
		}
		parts[i] = letters[t.Name]
	}
	return a.Relation + "(" + strings.Join(parts, ", ") + ")"
}

// canonicalLetters maps each original variable name to a short display
// letter (x, y, z, then x1, y1, …) assigned in canonical-index order.
func canonicalLetters(varIndex map[string]int) map[string]string {
	names := make([]string, len(varIndex))
	for name, idx := range varIndex {
		names[idx] = name
	}

	const alphabet = "xyzuvwabcdefghijklmnopqrst"
	letters := make(map[string]string, len(names))
	for idx, name := range names {
		letter := string(alphabet[idx%len(alphabet)])
		if gen := idx / len(alphabet); gen > 0 {
			letter = fmt.Sprintf("%s%d", letter, gen)
		}
		letters[name] = letter
	}
	return letters
}

func existentialLettersFor(r Rule, varIndex map[string]int, letters map[string]string) []string {
	names := make([]string, 0, len(r.Existentials))
	for _, v := range r.Existentials {
		if _, ok := varIndex[v]; ok {
			names = append(names, v)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return varIndex[names[i]] < varIndex[names[j]]
	})
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = letters[name]
	}
	return out
}
