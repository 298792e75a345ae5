package tasks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// meetingDocExts are the linked files treated as meeting documents.
var meetingDocExts = map[string]bool{".pdf": true, ".xml": true, ".htm": true, ".html": true}

func newCommitteeMeetings() *task.Module {
	m := module(runCommitteeMeetings)
	m.Settings["calendar_path"] = "Committee/Calendar/ByDay.aspx"
	return m
}

// runCommitteeMeetings saves the House committee calendar and every meeting
// document it links to, up to --limit.
func runCommitteeMeetings(ctx context.Context, env *task.Env, m *task.Module, opts *options.Raw) error {
	base := m.Setting("base_url", env.Sources.HouseCommittees)
	calendar := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(m.Setting("calendar_path", ""), "/")
	if c := opts.String("congress"); c != "" && !opts.Bool("congress") {
		calendar = withQuery(calendar, "Congress", c)
	}

	dest, err := save(ctx, env, "committee_meetings", calendar, "calendar.html")
	if err != nil {
		return err
	}
	page, err := os.ReadFile(dest)
	if err != nil {
		return fmt.Errorf("reading calendar: %w", err)
	}

	links, err := meetingLinks(page, calendar)
	if err != nil {
		return err
	}
	limit, _ := opts.Int("limit")
	saved := 0
	for _, link := range links {
		if limit > 0 && saved >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := path.Base(strings.SplitN(link, "?", 2)[0])
		if _, err := save(ctx, env, "committee_meetings", link, "documents", name); err != nil {
			return err
		}
		saved++
	}
	env.Logger.Info(fmt.Sprintf("saved %d meeting documents", saved), zap.String("calendar", calendar))
	return nil
}

// meetingLinks returns the absolute, de-duplicated document links of a
// calendar page, in page order.
func meetingLinks(page []byte, pageURL string) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	var links []string
	seen := make(map[string]bool)
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := getAttr(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				if abs, err := resolveLink(pageURL, href); err == nil && isMeetingDoc(abs) && !seen[abs] {
					seen[abs] = true
					links = append(links, abs)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return links, nil
}

func isMeetingDoc(link string) bool {
	p := strings.ToLower(strings.SplitN(link, "?", 2)[0])
	if !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "https://") {
		return false
	}
	return meetingDocExts[path.Ext(p)] && strings.Contains(p, "/meetings/")
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
