package rbac

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// FoldKey case-folds identifiers such as usernames and department names.
func FoldKey(value string) string {
	return fold.String(strings.TrimSpace(value))
}

// NormalizePage reduces a page reference to its page id: the leading path,
// query string and ".html" suffix are dropped, case is folded and word
// separators removed, so "/app/Live-Tanks.html?x=1" becomes "livetanks".
// An empty reference is the index page.
func NormalizePage(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.ReplaceAll(ref, "\\", "/")
	if ref == "" || strings.HasSuffix(ref, "/") {
		return PageIndex
	}
	ref = path.Base(ref)
	ref = FoldKey(ref)
	ref = strings.TrimSuffix(ref, ".html")
	ref = strings.NewReplacer("-", "", "_", "", " ", "").Replace(ref)
	if ref == "" || ref == "." || ref == "/" {
		return PageIndex
	}
	return ref
}

// normalizePages returns a sorted, de-duplicated page set and whether the
// wildcard was present.
func normalizePages(pages []string) ([]string, bool) {
	unique := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if FoldKey(p) == WildcardPage {
			return nil, true
		}
		unique[NormalizePage(p)] = struct{}{}
	}
	out := make([]string, 0, len(unique))
	for p := range unique {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, false
}

// pagesFromFlags lists the pages whose flag is true.
func pagesFromFlags(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for page, allowed := range flags {
		if allowed {
			out = append(out, page)
		}
	}
	return out
}
