package web

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydration-user-service/internal/querycache"
)

type listUser struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func TestTemplates_Parse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "guide.html", "users.html", "users_client.html", "dashboard.html", "login.html", "error.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestGuide_RendersMarkdown(t *testing.T) {
	html := string(Guide())

	assert.Contains(t, html, "<h1>Fetching data on the server and in the browser</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<code>")
}

func TestStatic_ServesComponent(t *testing.T) {
	f, err := Static().Open("users.js")
	require.NoError(t, err)
	defer f.Close()

	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(body), StateElementID)
}

func TestUsersPage_EmbedsEscapedState(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	qc := querycache.New()
	users := []listUser{{ID: 1, Name: "</script><script>alert(1)</script>", Email: "x@example.com"}}
	require.NoError(t, qc.SetQueryData(querycache.Key{"users", "getUsers"}, users))
	state, err := StateScript(qc)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "users.html", map[string]any{
		"Title":     "Users",
		"QueryKey":  querycache.Key{"users", "getUsers"}.Hash(),
		"Procedure": "getUsers",
		"Users":     users,
		"State":     state,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `id="__QUERY_STATE__"`)
	assert.Contains(t, out, `"queryHash":`)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(`<script type="application/json"`)))
}
