package browser

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"GrowthFlow/pkg/api"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// noise is removed before any text is extracted.
const noise = "script, style, noscript, nav, footer, aside, header, form, iframe, .cookie-banner, #cookie-notice, .ads, .advertisement"

// maxFieldLen bounds each extracted field.
const maxFieldLen = 6000

type section int

const (
	sectionNone section = iota
	sectionDescription
	sectionMissions
	sectionQualifications
	sectionAdditional
)

// headingKeywords maps lower-cased heading fragments to the field they open.
// Order matters: the first match wins.
var headingKeywords = []struct {
	keyword string
	section section
}{
	{"mission", sectionMissions},
	{"responsibilit", sectionMissions},
	{"what you will do", sectionMissions},
	{"what you'll do", sectionMissions},
	{"vos tâches", sectionMissions},
	{"profil", sectionQualifications},
	{"qualification", sectionQualifications},
	{"requirement", sectionQualifications},
	{"compétences", sectionQualifications},
	{"skills", sectionQualifications},
	{"who you are", sectionQualifications},
	{"avantages", sectionAdditional},
	{"benefits", sectionAdditional},
	{"informations complémentaires", sectionAdditional},
	{"additional", sectionAdditional},
	{"déroulement", sectionAdditional},
	{"process", sectionAdditional},
	{"salaire", sectionAdditional},
	{"description", sectionDescription},
	{"le poste", sectionDescription},
	{"about the role", sectionDescription},
	{"à propos", sectionDescription},
	{"about", sectionDescription},
}

func classifyHeading(text string) section {
	lower := strings.ToLower(text)
	for _, hk := range headingKeywords {
		if strings.Contains(lower, hk.keyword) {
			return hk.section
		}
	}
	return sectionNone
}

// LocalScraper extracts a posting in process instead of calling the
// backend. It satisfies the same contract as the API client's ScrapeJobURL.
type LocalScraper struct {
	fetcher *Fetcher
	log     *zap.Logger
}

// NewLocalScraper builds a scraper whose fetches time out after timeout.
func NewLocalScraper(timeout time.Duration, log *zap.Logger) *LocalScraper {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalScraper{fetcher: NewFetcher(timeout), log: log}
}

// ScrapeJobURL fetches jobURL and splits the posting into description,
// missions, qualifications and additional info by its headings. A page
// without recognizable headings yields only a description.
func (s *LocalScraper) ScrapeJobURL(ctx context.Context, jobURL string) (*api.ScrapedJob, error) {
	page, err := s.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		return nil, err
	}
	job := ExtractJob(page.Doc)
	s.log.Info("job posting scraped locally",
		zap.String("url", page.URL),
		zap.Int("description", len(job.JobDescription)),
		zap.Int("missions", len(job.MainMissions)),
		zap.Int("qualifications", len(job.Qualifications)))
	return job, nil
}

// ExtractJob reads the posting fields out of doc.
func ExtractJob(doc *goquery.Document) *api.ScrapedJob {
	job := &api.ScrapedJob{
		JobTitle:    firstNonEmpty(metaContent(doc, "og:title"), doc.Find("h1").First().Text(), doc.Find("title").First().Text()),
		CompanyName: metaContent(doc, "og:site_name"),
	}

	doc.Find(noise).Remove()
	root := doc.Find("main, article, [role=main]").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	parts := map[section]*strings.Builder{}
	current := sectionDescription
	var intro strings.Builder
	parts[sectionDescription] = &intro

	root.Find("h1, h2, h3, h4, strong, b, p, li").Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		isHeading := tag == "h2" || tag == "h3" || tag == "h4" ||
			((tag == "strong" || tag == "b") && len(text) < 80)
		if isHeading {
			if sec := classifyHeading(text); sec != sectionNone {
				current = sec
			}
			return
		}
		if tag == "h1" || tag == "strong" || tag == "b" {
			return
		}
		if tag == "p" {
			// bold-only paragraphs are headings, reached again through their child
			if st := strings.TrimSpace(sel.Find("strong, b").First().Text()); st == text {
				return
			}
			// paragraphs inside list items are reached through the item
			if sel.ParentsFiltered("li").Length() > 0 {
				return
			}
		}
		b, ok := parts[current]
		if !ok {
			b = &strings.Builder{}
			parts[current] = b
		}
		if tag == "li" {
			b.WriteString("- ")
		}
		b.WriteString(strings.Join(strings.Fields(text), " "))
		b.WriteString("\n")
	})

	field := func(sec section) string {
		if b, ok := parts[sec]; ok {
			return truncate(strings.TrimSpace(b.String()), maxFieldLen)
		}
		return ""
	}
	job.JobDescription = field(sectionDescription)
	job.MainMissions = field(sectionMissions)
	job.Qualifications = field(sectionQualifications)
	job.AdditionalInfo = field(sectionAdditional)

	if job.JobDescription == "" && job.MainMissions == "" && job.Qualifications == "" {
		job.JobDescription = truncate(selectionText(root), maxFieldLen)
	}
	job.JobTitle = strings.TrimSpace(job.JobTitle)
	return job
}

func metaContent(doc *goquery.Document, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
