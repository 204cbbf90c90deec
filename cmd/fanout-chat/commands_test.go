package main

import (
	"context"
	"testing"
)

func TestResolveToken(t *testing.T) {
	t.Cleanup(func() { token = "" })

	token = "from-flag"
	t.Setenv(TokenEnvVar, "from-env")
	if got, err := resolveToken(); err != nil || got != "from-flag" {
		t.Errorf("resolveToken() = %q, %v; want the flag value", got, err)
	}

	token = ""
	if got, err := resolveToken(); err != nil || got != "from-env" {
		t.Errorf("resolveToken() = %q, %v; want the env value", got, err)
	}
}

func TestResolveTargetUsesArgument(t *testing.T) {
	got, err := resolveTarget(context.Background(), []string{"ws://relay:8000"})
	if err != nil || got != "ws://relay:8000" {
		t.Errorf("resolveTarget() = %q, %v", got, err)
	}
}
