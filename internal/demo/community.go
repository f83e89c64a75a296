package demo

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

var (
	firstNames = []string{"Maria", "James", "Aisha", "Chen", "Priya", "Lucas", "Fatima", "Noah", "Sofia", "Kwame", "Elena", "Diego"}
	lastNames  = []string{"Garcia", "Okafor", "Nguyen", "Patel", "Schmidt", "Rossi", "Kim", "Haddad", "Silva", "Johnson"}
	businesses = []string{"Bakery", "Plumbing", "Dental", "Design Studio", "Hardware", "Yoga Studio", "Auto Repair", "Catering", "Bookkeeping", "Landscaping"}
	industries = []string{"retail", "restaurant", "professional_services", "healthcare", "construction", "technology"}
	locations  = []string{"Austin, TX", "Denver, CO", "Portland, OR", "Raleigh, NC", "Columbus, OH", "Tucson, AZ", "Madison, WI"}
	categories = []string{"automation", "marketing", "operations", "finance", "hiring"}
	titles     = map[string][]string{
		"automation": {"How we automated appointment reminders", "Invoice follow-ups on autopilot", "Our first chatbot: lessons learned"},
		"marketing":  {"Tracking what each customer costs us", "Three posts a week for a month", "Google reviews doubled our leads"},
		"operations": {"Writing SOPs that people actually read", "Cutting scheduling time in half", "Inventory counts without the weekend"},
		"finance":    {"Monthly close in two days", "Pricing after the supplier increase", "Cash flow forecasting for beginners"},
		"hiring":     {"Onboarding checklist that works", "Hiring our fifth employee", "Part-time vs contractors"},
	}
)

// Member is a generated community member
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Initials string    `json:"initials"`
	Business string    `json:"business"`
	Industry string    `json:"industry"`
	Location string    `json:"location"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Post is a generated community post
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// Community is a generated feed
type Community struct {
	Seed    uint64   `json:"seed"`
	Members []Member `json:"members"`
	Posts   []Post   `json:"posts"`
}

// GenerateCommunity builds count members and roughly twice as many posts.
// The same seed and asOf always yield the same feed.
func GenerateCommunity(seed uint64, count int, asOf time.Time) Community {
	count = clamp(count, DefaultCount, MaxCount)
	r := newRand(seed)
	asOf = asOf.UTC().Truncate(24 * time.Hour)

	members := make([]Member, count)
	for i := range members {
		first, last := pick(r, firstNames), pick(r, lastNames)
		members[i] = Member{
			ID:       fmt.Sprintf("m-%d", i+1),
			Name:     first + " " + last,
			Initials: string(first[0]) + string(last[0]),
			Business: last + " " + pick(r, businesses),
			Industry: pick(r, industries),
			Location: pick(r, locations),
			JoinedAt: asOf.Add(-time.Duration(r.IntN(365*24)) * time.Hour),
		}
	}

	posts := make([]Post, 0, count*2)
	for i := 0; i < count*2; i++ {
		author := members[r.IntN(len(members))]
		cat := pick(r, categories)
		posts = append(posts, Post{
			ID:        fmt.Sprintf("p-%d", i+1),
			AuthorID:  author.ID,
			Author:    author.Name,
			Category:  cat,
			Title:     pick(r, titles[cat]),
			Likes:     likes(r),
			Comments:  r.IntN(25),
			CreatedAt: asOf.Add(-time.Duration(r.IntN(30*24*60)) * time.Minute),
		})
	}
	sortPostsNewestFirst(posts)

	return Community{Seed: seed, Members: members, Posts: posts}
}

// likes is skewed so a few posts are popular
func likes(r *rand.Rand) int {
	base := r.ExpFloat64() * 12
	return int(base)
}

func sortPostsNewestFirst(posts []Post) {
	slices.SortStableFunc(posts, func(a, b Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// Search filters posts whose title or category contains q, case-insensitively
func (c Community) Search(q string) []Post {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.Posts
	}
	out := []Post{}
	for _, p := range c.Posts {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(p.Category, q) {
			out = append(out, p)
		}
	}
	return out
}
