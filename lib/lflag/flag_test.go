package lflag

import (
	"flag"
	"reflect"
	"testing"
)

func TestArrayString(t *testing.T) {
	cases := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "single value",
			args:     []string{"-addr=:8080"},
			expected: []string{":8080"},
		},
		{
			name:     "comma separated",
			args:     []string{"-addr=:8080, :8081"},
			expected: []string{":8080", ":8081"},
		},
		{
			name:     "multiple flags",
			args:     []string{"-addr=:8080", "-addr=:8081"},
			expected: []string{":8080", ":8081"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var a ArrayString
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.Var(&a, "addr", "")
			ParseFlagSet(fs, c.args)
			if !reflect.DeepEqual([]string(a), c.expected) {
				t.Errorf("unexpected values; got %q; want %q", a, c.expected)
			}
		})
	}
}

func TestArrayGetOptionalArg(t *testing.T) {
	a := ArrayString{"x"}
	if v := a.GetOptionalArg(3); v != "x" {
		t.Fatalf("single value must be applied to every index; got %q", v)
	}
	a = ArrayString{"x", "y"}
	if v := a.GetOptionalArg(3); v != "" {
		t.Fatalf("unexpected value for missing index; got %q", v)
	}

	b := ArrayBool{true, false}
	if b.GetOptionalArg(0) != true || b.GetOptionalArg(1) != false || b.GetOptionalArg(2) != false {
		t.Fatalf("unexpected bools for %v", b)
	}
}

func TestArrayBoolSet(t *testing.T) {
	var b ArrayBool
	if err := b.Set("true,false, true"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if b.String() != "true,false,true" {
		t.Fatalf("unexpected String(); got %q", b.String())
	}
	if err := b.Set("maybe"); err == nil {
		t.Fatalf("expecting non-nil error for invalid bool")
	}
}

func TestReplaceString(t *testing.T) {
	t.Setenv("WEDGE_TEST_HOST", "db.local")
	cases := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"-db.url=postgres://%{WEDGE_TEST_HOST}/app", "-db.url=postgres://db.local/app"},
		{"%{WEDGE_TEST_MISSING}", "%{WEDGE_TEST_MISSING}"},
		{"broken %{WEDGE_TEST_HOST", "broken %{WEDGE_TEST_HOST"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			if got := ReplaceString(c.in); got != c.expected {
				t.Errorf("ReplaceString(%q) = %q; want %q", c.in, got, c.expected)
			}
		})
	}
}

func TestIsSecretFlag(t *testing.T) {
	RegisterSecretFlag("db.url")
	for _, name := range []string{"auth.signingkey", "db.url", "somepassword"} {
		if !IsSecretFlag(name) {
			t.Errorf("expecting %q to be secret", name)
		}
	}
	if IsSecretFlag("httplisteneraddr") {
		t.Errorf("httplisteneraddr must not be secret")
	}
}

func TestApplyEnv(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	addr := fs.String("http.listenAddr", ":8428", "")
	url := fs.String("db.url", "", "")
	ttl := fs.Int("auth.tokenTTL", 0, "")
	if err := fs.Parse([]string{"-http.listenAddr=:9000"}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	env := map[string]string{
		"WEDGE_HTTP_LISTENADDR": ":1",
		"WEDGE_DB_URL":          "postgres://localhost/wedge",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	if err := applyEnv(fs, "WEDGE_", lookup); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if *addr != ":9000" {
		t.Errorf("command line value must win; got %q", *addr)
	}
	if *url != "postgres://localhost/wedge" {
		t.Errorf("unexpected -db.url %q", *url)
	}
	if *ttl != 0 {
		t.Errorf("unexpected -auth.tokenTTL %d", *ttl)
	}

	env["WEDGE_AUTH_TOKENTTL"] = "abc"
	if err := applyEnv(fs, "WEDGE_", lookup); err == nil {
		t.Fatalf("expecting non-nil error for invalid int")
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("WEDGE_", "httpListenAddr.useProxyProtocol"); got != "WEDGE_HTTPLISTENADDR_USEPROXYPROTOCOL" {
		t.Errorf("unexpected env name %q", got)
	}
}
