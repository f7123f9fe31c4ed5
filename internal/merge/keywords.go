package merge

import "strings"

// TagMerge is the result of refreshing a product's tags from generated keywords.
type TagMerge struct {
	// Tags is the tag set to write to the product.
	Tags []string
	// Banned holds keywords the merchant removed after an AI write.
	Banned []string
	// SnapshotKeywords is what the next snapshot records: the fresh keywords
	// followed by the banned ones, so they stay banned on the next pass.
	SnapshotKeywords []string
}

// MergeKeywords refreshes AI keywords while honoring removals. A keyword that
// the previous snapshot recorded but the live tags no longer contain was
// removed by hand and is never applied again. Live tags that never came from
// the generator are left alone. prior is nil when there is no snapshot.
// Tags compare case-insensitively, as the catalog does; the first spelling
// seen is kept.
func MergeKeywords(prior, live, fresh []string) TagMerge {
	priorSet := toSet(prior)
	liveSet := toSet(live)

	banned := make([]string, 0)
	bannedSet := make(map[string]struct{})
	for _, k := range normalize(prior) {
		if _, ok := liveSet[fold(k)]; ok {
			continue
		}
		if _, dup := bannedSet[fold(k)]; dup {
			continue
		}
		bannedSet[fold(k)] = struct{}{}
		banned = append(banned, k)
	}

	tags := newOrderedSet()
	for _, t := range normalize(live) {
		if _, fromAI := priorSet[fold(t)]; !fromAI {
			tags.add(t)
		}
	}
	for _, k := range normalize(fresh) {
		if _, isBanned := bannedSet[fold(k)]; !isBanned {
			tags.add(k)
		}
	}

	snapshot := newOrderedSet()
	for _, k := range normalize(fresh) {
		snapshot.add(k)
	}
	for _, k := range banned {
		snapshot.add(k)
	}

	return TagMerge{
		Tags:             tags.items,
		Banned:           banned,
		SnapshotKeywords: snapshot.items,
	}
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(s)
}

// toSet keys tags by their folded form.
func toSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, s := range normalize(in) {
		set[fold(s)] = struct{}{}
	}
	return set
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: make([]string, 0)}
}

func (o *orderedSet) add(s string) {
	if _, ok := o.seen[fold(s)]; ok {
		return
	}
	o.seen[fold(s)] = struct{}{}
	o.items = append(o.items, s)
}

func sameSet(a, b []string) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}
