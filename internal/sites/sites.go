// Package sites launches websites in a browser and builds YouTube search
// URLs. Each known site resolves to a URL plus a preferred browser
// executable; unknown names fall back to the default browser.
package sites

import (
	"os/exec"
	"strings"
)

const (
	firefoxPath = "/usr/bin/firefox"
	bravePath   = "/usr/bin/brave-browser"
)

// Target is where a canonical site name resolves.
type Target struct {
	URL     string
	Browser string
}

var targets = map[string]Target{
	"youtube":   {"https://youtube.com", firefoxPath},
	"google":    {"https://google.com", firefoxPath},
	"wikipedia": {"https://wikipedia.org", firefoxPath},
	"github":    {"https://github.com", firefoxPath},
	"spotify":   {"https://open.spotify.com/", firefoxPath},
	"amazon":    {"https://amazon.com", firefoxPath},
	"chatgpt":   {"https://chatgpt.com", firefoxPath},
	"gmail":     {"https://mail.google.com", firefoxPath},
	"whatsapp":  {"https://web.whatsapp.com", firefoxPath},
	"twitter":   {"https://twitter.com", firefoxPath},
	"linkedin":  {"https://linkedin.com", firefoxPath},
	"facebook":  {"https://facebook.com", firefoxPath},
	"instagram": {"https://instagram.com", firefoxPath},
	"reddit":    {"https://reddit.com", firefoxPath},
	"netflix":   {"https://netflix.com", firefoxPath},
}

// Resolve maps a canonical site name to its target. Unknown names are
// treated as a raw URL for the fallback browser.
func Resolve(site string) Target {
	if t, ok := targets[strings.ToLower(site)]; ok {
		return t
	}
	return Target{URL: site, Browser: bravePath}
}

// SearchURL builds a YouTube results URL for the query.
func SearchURL(query string) string {
	return "https://www.youtube.com/results?search_query=" + strings.ReplaceAll(query, " ", "+")
}

// Launcher spawns browsers. The run hook is injectable for tests.
type Launcher struct {
	run func(name string, args ...string) error
}

func NewLauncher() *Launcher {
	return &Launcher{run: spawn}
}

func spawn(name string, args ...string) error {
	// Fire and forget; the browser outlives the call.
	return exec.Command(name, args...).Start()
}

// Open launches the named site in its preferred browser, falling back to
// xdg-open when the executable is unavailable.
func (l *Launcher) Open(site string) error {
	t := Resolve(site)
	if err := l.run(t.Browser, t.URL); err != nil {
		return l.run("xdg-open", t.URL)
	}
	return nil
}

// SearchYouTube opens YouTube and then the results page for the query.
func (l *Launcher) SearchYouTube(query string) error {
	if err := l.Open("youtube"); err != nil {
		return err
	}
	u := SearchURL(query)
	if err := l.run("xdg-open", u); err != nil {
		return l.run(bravePath, u)
	}
	return nil
}
