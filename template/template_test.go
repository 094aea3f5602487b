package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ExactTargetDev/flume/event"
)

func TestContainsTag(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain path", "/logs/app.log", false},
		{"single placeholder", "/logs/%{host}/app.log", true},
		{"placeholder only", "%{host}", true},
		{"literal percent escape", "/logs/100%%/app.log", false},
		{"unclosed brace", "/logs/%{host/app.log", false},
		{"empty", "", false},
		{"escape then placeholder", "%%%{host}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsTag(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Static, Classify("/logs", "app.log"))
	assert.Equal(t, Dynamic, Classify("/logs/%{host}", "app.log"))
	assert.Equal(t, Dynamic, Classify("/logs", "%{host}.log"))
	assert.Equal(t, Dynamic, Classify("/logs/%{dc}", "%{host}.log"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/logs/app.log", Join("/logs", "app.log"))
	assert.Equal(t, "/logs/app.log", Join("/logs/", "app.log"))
	assert.Equal(t, "/logs", Join("/logs", ""))
}

func TestResolve(t *testing.T) {
	e := event.New(nil, map[string]string{"host": "h1", "dc": "us-east"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "/logs/app.log", "/logs/app.log"},
		{"single tag", "/logs/%{host}/app.log", "/logs/h1/app.log"},
		{"two tags", "/%{dc}/%{host}.log", "/us-east/h1.log"},
		{"missing tag resolves empty", "/logs/%{rack}/app.log", "/logs//app.log"},
		{"literal percent", "/logs/100%%/x", "/logs/100%/x"},
		{"unclosed brace passes through", "/logs/%{host", "/logs/%{host"},
		{"trailing percent", "/logs/50%", "/logs/50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in, e))
		})
	}
}

func TestResolveSameTagsSamePath(t *testing.T) {
	e1 := event.New([]byte("a"), map[string]string{"host": "h1"})
	e3 := event.New([]byte("b"), map[string]string{"host": "h1"})

	assert.Equal(t,
		Resolve("/logs/%{host}/app.log", e1),
		Resolve("/logs/%{host}/app.log", e3))
}
