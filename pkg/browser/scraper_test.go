package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"GrowthFlow/pkg/resume"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postingHTML = `<!doctype html>
<html><head>
<title>Product Manager - Acme</title>
<meta property="og:title" content="Product Manager H/F">
<meta property="og:site_name" content="Acme">
<script>var tracking = 1;</script>
</head>
<body>
<nav>Accueil | Offres</nav>
<main>
  <h1>Product Manager H/F</h1>
  <p>Acme construit des outils pour les équipes produit.</p>
  <h2>Vos missions</h2>
  <ul><li>Piloter la roadmap</li><li>Animer les rituels</li></ul>
  <p><strong>Profil recherché</strong></p>
  <ul><li>5 ans d'expérience</li><li><p>Anglais courant</p></li></ul>
  <h3>Avantages</h3>
  <p>Télétravail partiel</p>
</main>
<footer>Mentions légales</footer>
</body></html>`

func TestExtractJob(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(postingHTML))
	require.NoError(t, err)

	job := ExtractJob(doc)
	assert.Equal(t, "Product Manager H/F", job.JobTitle)
	assert.Equal(t, "Acme", job.CompanyName)
	assert.Equal(t, "Acme construit des outils pour les équipes produit.", job.JobDescription)
	assert.Equal(t, "- Piloter la roadmap\n- Animer les rituels", job.MainMissions)
	assert.Equal(t, "- 5 ans d'expérience\n- Anglais courant", job.Qualifications)
	assert.Equal(t, "Télétravail partiel", job.AdditionalInfo)
}

func TestExtractJobWithoutHeadings(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div>Un poste <span>varié</span></div><div>Rejoignez-nous</div></body></html>`))
	require.NoError(t, err)

	job := ExtractJob(doc)
	assert.Equal(t, "Un poste varié\n\nRejoignez-nous", job.JobDescription)
	assert.Empty(t, job.MainMissions)
	assert.Empty(t, job.Qualifications)
}

func TestLocalScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/job":
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(postingHTML))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := NewLocalScraper(5*time.Second, nil)

	job, err := s.ScrapeJobURL(context.Background(), srv.URL+"/job")
	require.NoError(t, err)
	assert.Contains(t, job.MainMissions, "Piloter la roadmap")

	_, err = s.ScrapeJobURL(context.Background(), srv.URL+"/json")
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = s.ScrapeJobURL(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClassifyHeading(t *testing.T) {
	tests := map[string]section{
		"Vos missions":           sectionMissions,
		"Key Responsibilities":   sectionMissions,
		"Profil recherché":       sectionQualifications,
		"Requirements":           sectionQualifications,
		"Benefits":               sectionAdditional,
		"Description du poste":   sectionDescription,
		"Rejoignez une équipe !": sectionNone,
	}
	for heading, want := range tests {
		assert.Equal(t, want, classifyHeading(heading), heading)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 2))
	// never splits a multi-byte rune
	assert.Equal(t, "é…", truncate("éé", 3))
}

func TestPDFOptions(t *testing.T) {
	opts := pdfOptions(resume.DefaultPDFConfig(), "/tmp/cv.pdf")
	assert.Equal(t, "A4", *opts.Format)
	assert.Equal(t, "/tmp/cv.pdf", *opts.Path)
	assert.True(t, *opts.PrintBackground)
	assert.False(t, *opts.Landscape)
	require.NotNil(t, opts.Margin)
	assert.Equal(t, "10mm", *opts.Margin.Top)
	assert.Equal(t, "10mm", *opts.Margin.Left)

	opts = pdfOptions(resume.PDFConfig{MarginMM: 5}, "x.pdf")
	assert.Equal(t, "A4", *opts.Format)
	assert.Equal(t, "5mm", *opts.Margin.Bottom)
}
