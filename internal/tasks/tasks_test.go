package tasks

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StrategyComplex/congress-thetownhall/internal/config"
	"github.com/StrategyComplex/congress-thetownhall/internal/fetch"
	"github.com/StrategyComplex/congress-thetownhall/internal/options"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// site serves fixed bodies by request URI and remembers what was asked for.
type site struct {
	*httptest.Server
	mu     sync.Mutex
	pages  map[string]string
	served []string
}

func newSite(t *testing.T, pages map[string]string) *site {
	t.Helper()
	s := &site{pages: pages}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.served = append(s.served, r.URL.RequestURI())
		s.mu.Unlock()
		body, ok := s.pages[r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func newEnv(t *testing.T, s *site) (*task.Env, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	var stdout bytes.Buffer
	return &task.Env{
		Logger: zap.NewNop(),
		Fetch: &fetch.Client{
			HTTP:     s.Client(),
			CacheDir: filepath.Join(root, "cache"),
			Logger:   zap.NewNop(),
		},
		Sources: config.SourcesConfig{
			GovInfoBulk:     s.URL + "/bulkdata",
			GovInfoAPI:      s.URL + "/api",
			GovInfoAPIKey:   "DEMO_KEY",
			CongressGov:     s.URL,
			HouseClerk:      s.URL,
			HouseCommittees: s.URL,
		},
		DataDir: filepath.Join(root, "data"),
		Stdout:  &stdout,
		Timeout: 5 * time.Second,
	}, &stdout
}

func run(t *testing.T, name string, env *task.Env, opts map[string]any) error {
	t.Helper()
	r := task.NewRegistry()
	Register(r)
	m, err := r.Resolve(name)
	require.NoError(t, err)
	return r.Invoke(context.Background(), env, m, options.RawFromMap(opts))
}

func readData(t *testing.T, env *task.Env, rel ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{env.DataDir}, rel...)...))
	require.NoError(t, err)
	return string(data)
}

func TestRegisterCoversDataTypes(t *testing.T) {
	r := task.NewRegistry()
	Register(r)
	assert.Equal(t, options.DataTypeNames(), r.Names())
}

func TestGovInfoBulkData(t *testing.T) {
	s := newSite(t, map[string]string{
		"/bulkdata/json/BILLSTATUS/118": `{"files":[
			{"justFileName":"hr","link":"/bulkdata/json/BILLSTATUS/118/hr","folder":true}
		]}`,
		"/bulkdata/json/BILLSTATUS/118/hr": `{"files":[
			{"justFileName":"BILLSTATUS-118hr1.xml","link":"/bulkdata/json/BILLSTATUS/118/hr/BILLSTATUS-118hr1.xml","folder":false,"fileExtension":"xml"},
			{"justFileName":"BILLSTATUS-118hr2.xml","link":"/bulkdata/json/BILLSTATUS/118/hr/BILLSTATUS-118hr2.xml","folder":false,"fileExtension":"xml"},
			{"justFileName":"BILLSTATUS-118-hr.zip","link":"/bulkdata/json/BILLSTATUS/118/hr/BILLSTATUS-118-hr.zip","folder":false,"fileExtension":"zip"}
		]}`,
		"/bulkdata/BILLSTATUS/118/hr/BILLSTATUS-118hr1.xml": "<bill>1</bill>",
		"/bulkdata/BILLSTATUS/118/hr/BILLSTATUS-118hr2.xml": "<bill>2</bill>",
		"/bulkdata/BILLSTATUS/118/hr/BILLSTATUS-118-hr.zip": "PK",
	})

	t.Run("all", func(t *testing.T) {
		env, _ := newEnv(t, s)
		require.NoError(t, run(t, "govinfo", env, map[string]any{"bulkdata": "BILLSTATUS", "congress": "118"}))
		assert.Equal(t, "<bill>1</bill>", readData(t, env, "govinfo", "BILLSTATUS", "118", "hr", "BILLSTATUS-118hr1.xml"))
		assert.Equal(t, "PK", readData(t, env, "govinfo", "BILLSTATUS", "118", "hr", "BILLSTATUS-118-hr.zip"))
	})

	t.Run("limit", func(t *testing.T) {
		env, _ := newEnv(t, s)
		require.NoError(t, run(t, "govinfo", env, map[string]any{"bulkdata": "BILLSTATUS", "congress": "118", "limit": "1"}))
		readData(t, env, "govinfo", "BILLSTATUS", "118", "hr", "BILLSTATUS-118hr1.xml")
		_, err := os.Stat(filepath.Join(env.DataDir, "govinfo", "BILLSTATUS", "118", "hr", "BILLSTATUS-118hr2.xml"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("store", func(t *testing.T) {
		env, _ := newEnv(t, s)
		require.NoError(t, run(t, "govinfo", env, map[string]any{"bulkdata": "BILLSTATUS", "congress": "118", "store": "zip"}))
		entries, err := os.ReadDir(filepath.Join(env.DataDir, "govinfo", "BILLSTATUS", "118", "hr"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "BILLSTATUS-118-hr.zip", entries[0].Name())
	})
}

func TestGovInfoList(t *testing.T) {
	s := newSite(t, map[string]string{"/api/collections?api_key=DEMO_KEY": `{"collections":[]}`})
	env, _ := newEnv(t, s)

	require.NoError(t, run(t, "govinfo", env, map[string]any{"list": true}))
	assert.Equal(t, `{"collections":[]}`, readData(t, env, "govinfo", "collections.json"))
}

func TestGovInfoNeedsMode(t *testing.T) {
	env, _ := newEnv(t, newSite(t, nil))
	err := run(t, "govinfo", env, map[string]any{})
	assert.ErrorContains(t, err, "--list, --bulkdata or --collections")
}

func TestBillsByID(t *testing.T) {
	s := newSite(t, map[string]string{"/bulkdata/BILLSTATUS/118/hr/BILLSTATUS-118hr1.xml": "<billStatus/>"})
	env, stdout := newEnv(t, s)

	require.NoError(t, run(t, "bills", env, map[string]any{"bill_id": "hr1-118"}))
	assert.Equal(t, "<billStatus/>", readData(t, env, "bills", "118", "hr", "hr1", "fdsys_billstatus.xml"))
	assert.Contains(t, stdout.String(), "Saved ")
}

func TestBillsBadID(t *testing.T) {
	env, _ := newEnv(t, newSite(t, nil))
	assert.ErrorContains(t, run(t, "bills", env, map[string]any{"bill_id": "118-hr"}), "not of the form")
}

func TestStatutesVolumes(t *testing.T) {
	s := newSite(t, map[string]string{
		"/api/packages/STATUTE-65/summary?api_key=DEMO_KEY": `{"vol":65}`,
		"/api/packages/STATUTE-66/summary?api_key=DEMO_KEY": `{"vol":66}`,
	})
	env, _ := newEnv(t, s)

	require.NoError(t, run(t, "statutes", env, map[string]any{"volumes": "65-66"}))
	assert.Equal(t, `{"vol":65}`, readData(t, env, "statutes", "volumes", "65.json"))
	assert.Equal(t, `{"vol":66}`, readData(t, env, "statutes", "volumes", "66.json"))
}

func TestStatutesYearAlias(t *testing.T) {
	s := newSite(t, map[string]string{
		"/api/published/1951-01-01/1951-12-31?api_key=DEMO_KEY&collection=STATUTE&offsetMark=%2A&pageSize=100": `{"year":1951}`,
	})
	env, _ := newEnv(t, s)

	require.NoError(t, run(t, "statutes", env, map[string]any{"year": "1951"}))
	assert.Equal(t, `{"year":1951}`, readData(t, env, "statutes", "years", "1951.json"))
}

func TestStatutesNeedsSelector(t *testing.T) {
	env, _ := newEnv(t, newSite(t, nil))
	assert.ErrorContains(t, run(t, "statutes", env, map[string]any{}), "--volumes or --years")
}

func TestNominations(t *testing.T) {
	s := newSite(t, map[string]string{"/nomination/112th-congress/1": "<html>PN1</html>"})
	env, _ := newEnv(t, s)

	require.NoError(t, run(t, "nominations", env, map[string]any{"nomination-id": "112-1"}))
	assert.Equal(t, "<html>PN1</html>", readData(t, env, "nominations", "112", "PN1.html"))
}

func TestVotesByCongress(t *testing.T) {
	s := newSite(t, map[string]string{
		"/evs/2023/index.asp": "2023",
		"/evs/2024/index.asp": "2024",
	})
	env, _ := newEnv(t, s)

	require.NoError(t, run(t, "votes", env, map[string]any{"congress": "118"}))
	assert.Equal(t, "2023", readData(t, env, "votes", "2023", "index.html"))
	assert.Equal(t, "2024", readData(t, env, "votes", "2024", "index.html"))
}

func TestVoteYearsDefault(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	years, err := voteYears(options.NewRaw(), now)
	require.NoError(t, err)
	assert.Equal(t, []int{2026}, years)
}

func TestCommitteeMeetings(t *testing.T) {
	calendar := `<html><body>
		<a href="#top">top</a>
		<a href="/meetings/AP/AP00/20230301/115000/HHRG-118-AP00-20230301.pdf">Hearing</a>
		<a href="/meetings/AP/AP00/20230301/115000/HHRG-118-AP00-20230301.pdf">Hearing again</a>
		<a href="/Committee/Calendar/ByEvent.aspx?EventID=1">Event</a>
		<a href="/meetings/IF/IF14/20230302/115001/BILLS-118hr1ih.xml">Bill text</a>
	</body></html>`
	s := newSite(t, map[string]string{
		"/Committee/Calendar/ByDay.aspx": calendar,
		"/meetings/AP/AP00/20230301/115000/HHRG-118-AP00-20230301.pdf": "%PDF",
		"/meetings/IF/IF14/20230302/115001/BILLS-118hr1ih.xml":          "<bill/>",
	})

	t.Run("all", func(t *testing.T) {
		env, _ := newEnv(t, s)
		require.NoError(t, run(t, "committee_meetings", env, map[string]any{}))
		assert.Equal(t, calendar, readData(t, env, "committee_meetings", "calendar.html"))
		assert.Equal(t, "%PDF", readData(t, env, "committee_meetings", "documents", "HHRG-118-AP00-20230301.pdf"))
		assert.Equal(t, "<bill/>", readData(t, env, "committee_meetings", "documents", "BILLS-118hr1ih.xml"))
	})

	t.Run("limit", func(t *testing.T) {
		env, _ := newEnv(t, s)
		require.NoError(t, run(t, "committee_meetings", env, map[string]any{"limit": "1"}))
		entries, err := os.ReadDir(filepath.Join(env.DataDir, "committee_meetings", "documents"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestMeetingLinks(t *testing.T) {
	page := []byte(`<a href="a/meetings/x.pdf">rel</a><a href="mailto:x@y">m</a><a href="https://other.gov/meetings/y.htm">abs</a>`)
	links, err := meetingLinks(page, "https://docs.house.gov/Committee/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://docs.house.gov/Committee/a/meetings/x.pdf",
		"https://other.gov/meetings/y.htm",
	}, links)
}

func TestSettingRedirectsSource(t *testing.T) {
	mirror := newSite(t, map[string]string{"/evs/2023/index.asp": "mirror"})
	env, _ := newEnv(t, newSite(t, nil))

	r := task.NewRegistry()
	Register(r)
	m, err := r.Resolve("votes")
	require.NoError(t, err)
	m.Settings["base_url"] = mirror.URL
	env.Fetch.HTTP = mirror.Client()

	require.NoError(t, r.Invoke(context.Background(), env, m, options.RawFromMap(map[string]any{"years": "2023"})))
	assert.Equal(t, "mirror", readData(t, env, "votes", "2023", "index.html"))
}

func TestExpandRange(t *testing.T) {
	got, err := expandRange("65-67, 70")
	require.NoError(t, err)
	assert.Equal(t, []int{65, 66, 67, 70}, got)

	for _, bad := range []string{"", "x", "9-3", "1-y", "1-2000000000", "1-600,700-1300"} {
		_, err := expandRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestExpandRangeLimit(t *testing.T) {
	got, err := expandRange("1-1000")
	require.NoError(t, err)
	assert.Len(t, got, maxRange)

	_, err = expandRange("1-1001")
	assert.ErrorContains(t, err, "more than 1000 items")
}

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 11: "11th", 101: "101st", 112: "112th", 113: "113th", 118: "118th"} {
		assert.Equal(t, want, ordinal(n))
	}
}

func TestCongressYears(t *testing.T) {
	assert.Equal(t, []int{2023, 2024}, congressYears(118))
	assert.Equal(t, []int{1789, 1790}, congressYears(1))
}

func TestParseIDs(t *testing.T) {
	id, err := parseBillID("HR1-118")
	require.NoError(t, err)
	assert.Equal(t, billID{Type: "hr", Number: "1", Congress: "118"}, id)

	c, n, err := parseNominationID("112-1-2")
	require.NoError(t, err)
	assert.Equal(t, 112, c)
	assert.Equal(t, "1-2", n)

	_, _, err = parseNominationID("112")
	assert.Error(t, err)
}
