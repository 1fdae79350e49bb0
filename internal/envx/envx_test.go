package envx

import (
	"testing"
	"time"
)

func TestGetters(t *testing.T) {
	t.Setenv("ENVX_STRING", "value")
	t.Setenv("ENVX_INT", " 42 ")
	t.Setenv("ENVX_BOOL", "true")
	t.Setenv("ENVX_DURATION", "15m")
	t.Setenv("ENVX_LIST", "a:9092, ,b:9092")

	if got := GetString("ENVX_STRING", "x"); got != "value" {
		t.Fatalf("GetString = %q", got)
	}
	if got := GetInt("ENVX_INT", 0); got != 42 {
		t.Fatalf("GetInt = %d", got)
	}
	if !GetBool("ENVX_BOOL", false) {
		t.Fatal("GetBool = false")
	}
	if got := GetDuration("ENVX_DURATION", 0); got != 15*time.Minute {
		t.Fatalf("GetDuration = %v", got)
	}
	if got := GetList("ENVX_LIST", nil); len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("GetList = %v", got)
	}
}

func TestFallbacks(t *testing.T) {
	t.Setenv("ENVX_BAD_INT", "many")
	t.Setenv("ENVX_BAD_DURATION", "10")

	if got := GetString("ENVX_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("GetString = %q", got)
	}
	if got := GetInt("ENVX_BAD_INT", 7); got != 7 {
		t.Fatalf("GetInt = %d", got)
	}
	if got := GetDuration("ENVX_BAD_DURATION", time.Second); got != time.Second {
		t.Fatalf("GetDuration = %v", got)
	}
	if got := GetList("ENVX_UNSET", []string{"d"}); len(got) != 1 || got[0] != "d" {
		t.Fatalf("GetList = %v", got)
	}
}
