package auth

import (
	"math/rand/v2"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const avatarBaseURL = "https://avatar.vercel.sh/vercel.svg"

var (
	firstNames = []string{
		"Ada", "Alan", "Barbara", "Claude", "Dennis", "Edsger", "Frances", "Grace",
		"Hedy", "Ivan", "John", "Ken", "Leslie", "Margaret", "Niklaus", "Radia",
		"Rob", "Sophie", "Tim", "Yukihiro",
	}
	lastNames = []string{
		"Allen", "Backus", "Cerf", "Dijkstra", "Engelbart", "Floyd", "Goldberg", "Hopper",
		"Iverson", "Knuth", "Lamport", "Liskov", "Hamilton", "McCarthy", "Perlman", "Pike",
		"Ritchie", "Thompson", "Wilson", "Wirth",
	}
)

// Profile is the generated display identity of a new account.
type Profile struct {
	Username string
	Avatar   string
}

// NameGenerator picks a display name for accounts created without one.
type NameGenerator func() (first, last string)

func randomName() (string, string) {
	return firstNames[rand.IntN(len(firstNames))], lastNames[rand.IntN(len(lastNames))]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// NewProfile builds the display name and initials avatar for a new account.
func NewProfile(first, last string) Profile {
	query := url.Values{"text": {initial(first) + initial(last)}}
	return Profile{
		Username: strings.TrimSpace(capitalize(first) + " " + capitalize(last)),
		Avatar:   avatarBaseURL + "?" + query.Encode(),
	}
}
