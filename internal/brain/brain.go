// Package brain routes one transcribed utterance to one response. Routing
// is an ordered table of rules; the first rule that claims the command
// wins, so the priority order is auditable in one place.
package brain

import (
	"context"
	"fmt"
	"strings"

	log "log/slog"
)

// Memory is the subset of the memory service the router consumes.
type Memory interface {
	RememberFact(text string) (string, bool)
	RecallFact(text string) (string, bool)
	CachedAnswer(question string) (string, bool)
	Answer(ctx context.Context, question string) string
}

// Searcher answers live-data questions. An empty result with a nil error
// means the query did not need live data.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Opener performs the browser side effects.
type Opener interface {
	Open(site string) error
	SearchYouTube(query string) error
}

// State is the per-session context threaded through Respond calls. The
// last opened site makes a bare "search for ..." resolve against YouTube
// on the following turn.
type State struct {
	LastOpenedSite string
}

type rule struct {
	name string
	fn   func(ctx context.Context, cmd, lower string, st *State) (string, bool)
}

type Router struct {
	mem   Memory
	live  Searcher
	sites Opener
	rules []rule
}

func New(mem Memory, live Searcher, sites Opener) *Router {
	r := &Router{mem: mem, live: live, sites: sites}
	r.rules = []rule{
		{"open-site", r.openSite},
		{"youtube-search", r.youtubeSearch},
		{"contextual-search", r.contextualSearch},
		{"memory", r.memoryShortcut},
		{"realtime", r.realtime},
		{"generate", r.generate},
	}
	return r
}

// Respond maps one utterance to one reply, mutating st for sticky site
// context. The final rule always claims the command, so Respond always
// returns a non-empty reply.
func (r *Router) Respond(ctx context.Context, cmd string, st *State) string {
	lower := strings.ToLower(cmd)
	for _, rl := range r.rules {
		if resp, ok := rl.fn(ctx, cmd, lower, st); ok {
			log.Debug("rule matched", "rule", rl.name)
			return resp
		}
	}
	return ""
}

// siteCommands is the fixed phrase table for rule 1, checked in order.
var siteCommands = []struct {
	phrase string
	site   string
}{
	{"open youtube", "youtube"},
	{"open google", "google"},
	{"open wikipedia", "wikipedia"},
	{"open github", "github"},
	{"open spotify", "spotify"},
	{"open amazon", "amazon"},
	{"open chatgpt", "chatgpt"},
	{"open gmail", "gmail"},
	{"open whatsapp", "whatsapp"},
	{"open twitter", "twitter"},
	{"open linkedin", "linkedin"},
	{"open facebook", "facebook"},
	{"open instagram", "instagram"},
	{"open reddit", "reddit"},
	{"open netflix", "netflix"},
}

func (r *Router) openSite(_ context.Context, _, lower string, st *State) (string, bool) {
	for _, sc := range siteCommands {
		if !strings.Contains(lower, sc.phrase) {
			continue
		}
		if err := r.sites.Open(sc.site); err != nil {
			log.Error("failed to open site", "site", sc.site, "err", err)
		}
		st.LastOpenedSite = sc.site
		return fmt.Sprintf("Opening %s for you!", title(sc.site)), true
	}
	return "", false
}

var youtubePrefixes = []string{"search youtube for", "search on youtube for"}

func (r *Router) youtubeSearch(_ context.Context, _, lower string, _ *State) (string, bool) {
	for _, p := range youtubePrefixes {
		if strings.Contains(lower, p) {
			query := lower
			for _, q := range youtubePrefixes {
				query = strings.ReplaceAll(query, q, "")
			}
			return r.runYouTubeSearch(strings.TrimSpace(query)), true
		}
	}
	return "", false
}

func (r *Router) contextualSearch(_ context.Context, _, lower string, st *State) (string, bool) {
	if st.LastOpenedSite != "youtube" || !strings.Contains(lower, "search for") {
		return "", false
	}
	query := strings.TrimSpace(strings.ReplaceAll(lower, "search for", ""))
	return r.runYouTubeSearch(query), true
}

func (r *Router) runYouTubeSearch(query string) string {
	if err := r.sites.SearchYouTube(query); err != nil {
		log.Error("youtube search failed", "query", query, "err", err)
	}
	return fmt.Sprintf("Searching YouTube for: %s", query)
}

func (r *Router) memoryShortcut(_ context.Context, cmd, _ string, _ *State) (string, bool) {
	if resp, ok := r.mem.RememberFact(cmd); ok {
		return resp, true
	}
	if resp, ok := r.mem.RecallFact(cmd); ok {
		return resp, true
	}
	if resp, ok := r.mem.CachedAnswer(cmd); ok {
		return resp, true
	}
	return "", false
}

func (r *Router) realtime(ctx context.Context, cmd, _ string, _ *State) (string, bool) {
	resp, err := r.live.Search(ctx, cmd)
	if err != nil {
		log.Error("realtime search failed", "err", err)
		return "", false
	}
	if resp == "" {
		return "", false
	}
	return resp, true
}

func (r *Router) generate(ctx context.Context, cmd, _ string, _ *State) (string, bool) {
	return r.mem.Answer(ctx, cmd), true
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
