package sqlitekv

import "testing"

func TestParseDSN(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		dsn     string
		want    string
		wantErr bool
	}{
		{name: "memory", dsn: "sqlite://:memory:", want: ":memory:"},
		{name: "absolute", dsn: "sqlite:///var/lib/dm/state.db", want: "/var/lib/dm/state.db"},
		{name: "relative", dsn: "sqlite://state.db", want: "./state.db"},
		{name: "dot relative", dsn: "sqlite://./state.db", want: "./state.db"},
		{name: "query", dsn: "sqlite://state.db?_pragma=foo", want: "./state.db?_pragma=foo"},
		{name: "escaped", dsn: "sqlite://my%20game.db", want: "./my game.db"},
		{name: "wrong scheme", dsn: "postgres://x", wantErr: true},
		{name: "empty path", dsn: "sqlite://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseDSN(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDSN(%q) error = %v, wantErr %v", tt.dsn, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}
