package app

import (
	"bytes"
	"testing"
)

// TestParseCommand はサブコマンドの解析を検証する。
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なし", nil, CommandStub},
		{"stub", []string{"stub"}, CommandStub},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"未知のコマンド", []string{"unbekannt"}, CommandStub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

// TestInit_LoadsConfig は初期化で設定が読み込まれることを検証する。
func TestInit_LoadsConfig(t *testing.T) {
	t.Setenv("CONSOLE_BASE_URL", "https://api.example.de")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init がエラーを返した: %v", err)
	}
	if cfg.BaseURL != "https://api.example.de" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

// TestInit_MissingBaseURL は必須環境変数の欠落でエラーになることを検証する。
func TestInit_MissingBaseURL(t *testing.T) {
	t.Setenv("CONSOLE_BASE_URL", "")

	var buf bytes.Buffer
	if _, err := Init(&buf); err == nil {
		t.Fatal("CONSOLE_BASE_URL未設定でエラーが返らなかった")
	}
}
