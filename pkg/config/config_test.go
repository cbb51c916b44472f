package config

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveReturnsFullyPopulatedConfigs(t *testing.T) {
	for _, name := range EnvironmentNames() {
		cfg, err := Resolve(name)
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		if err := cfg.validate(); err != nil {
			t.Fatalf("resolve %q returned incomplete config: %v", name, err)
		}
		if cfg.Name != name {
			t.Fatalf("resolve %q returned config named %q", name, cfg.Name)
		}
	}
}

func TestResolveIsPure(t *testing.T) {
	for _, name := range EnvironmentNames() {
		first, err := Resolve(name)
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		second, err := Resolve(name)
		if err != nil {
			t.Fatalf("second resolve %q: %v", name, err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("resolve %q not stable: %#v vs %#v", name, first, second)
		}
	}
}

func TestResolveUnknownEnvironment(t *testing.T) {
	for _, name := range []string{"qa", "production", "Dev", ""} {
		_, err := Resolve(name)
		if err == nil {
			t.Fatalf("resolve %q: expected error", name)
		}
		var unknown *UnknownEnvironmentError
		if !errors.As(err, &unknown) {
			t.Fatalf("resolve %q: expected UnknownEnvironmentError, got %v", name, err)
		}
		if unknown.Name != name {
			t.Fatalf("error reports name %q, want %q", unknown.Name, name)
		}
		if len(unknown.Known) != 3 {
			t.Fatalf("error lists %d environments, want 3", len(unknown.Known))
		}
	}
}

func TestEnvironmentTableValues(t *testing.T) {
	tests := []struct {
		env                string
		maxAZs             int
		minCapacity        float64
		maxCapacity        float64
		retentionDays      int
		deletionProtection bool
		multiAZ            bool
		searchCount        int
		searchType         string
		natPerAZ           bool
	}{
		{"dev", 2, 0.5, 2.0, 7, false, false, 1, "t3.small.search", false},
		{"staging", DefaultMaxAZs, 1.0, 8.0, 14, false, true, 2, "r6g.large.search", true},
		{"prod", DefaultMaxAZs, 2.0, 16.0, 30, true, true, 3, "r6g.large.search", true},
	}
	for _, tt := range tests {
		cfg, err := Resolve(tt.env)
		if err != nil {
			t.Fatalf("resolve %q: %v", tt.env, err)
		}
		if cfg.Database.MinCapacity != tt.minCapacity || cfg.Database.MaxCapacity != tt.maxCapacity {
			t.Fatalf("%s capacity range (%v, %v), want (%v, %v)", tt.env,
				cfg.Database.MinCapacity, cfg.Database.MaxCapacity, tt.minCapacity, tt.maxCapacity)
		}
		if cfg.Database.BackupRetentionDays != tt.retentionDays {
			t.Fatalf("%s retention %d, want %d", tt.env, cfg.Database.BackupRetentionDays, tt.retentionDays)
		}
		if cfg.Database.DeletionProtection != tt.deletionProtection {
			t.Fatalf("%s deletion protection %v, want %v", tt.env, cfg.Database.DeletionProtection, tt.deletionProtection)
		}
		if cfg.Database.MultiAZ != tt.multiAZ {
			t.Fatalf("%s multi-az %v, want %v", tt.env, cfg.Database.MultiAZ, tt.multiAZ)
		}
		if cfg.Search.InstanceCount != tt.searchCount || cfg.Search.InstanceType != tt.searchType {
			t.Fatalf("%s search %d x %s, want %d x %s", tt.env,
				cfg.Search.InstanceCount, cfg.Search.InstanceType, tt.searchCount, tt.searchType)
		}
		if cfg.Network.NATGatewayPerAZ != tt.natPerAZ {
			t.Fatalf("%s nat-per-az %v, want %v", tt.env, cfg.Network.NATGatewayPerAZ, tt.natPerAZ)
		}
		if cfg.Network.MaxAZs != tt.maxAZs {
			t.Fatalf("%s max-azs %d, want %d", tt.env, cfg.Network.MaxAZs, tt.maxAZs)
		}
	}
}

func TestEnvironmentsReturnsIsolatedCopy(t *testing.T) {
	envs := Environments()
	mutated := envs["prod"]
	mutated.Database.DeletionProtection = false
	envs["prod"] = mutated
	delete(envs, "dev")

	cfg, err := Resolve("prod")
	if err != nil {
		t.Fatalf("resolve prod: %v", err)
	}
	if !cfg.Database.DeletionProtection {
		t.Fatal("mutating the returned table leaked into later resolutions")
	}
	if _, err := Resolve("dev"); err != nil {
		t.Fatalf("resolve dev after table mutation: %v", err)
	}
}

func TestResourceName(t *testing.T) {
	cfg, err := Resolve("staging")
	if err != nil {
		t.Fatalf("resolve staging: %v", err)
	}
	if got, want := cfg.ResourceName("vpc"), "aws-cdk-infra-vpc-staging"; got != want {
		t.Fatalf("resource name %q, want %q", got, want)
	}
	if got, want := cfg.ResourceName("queue", "dlq"), "aws-cdk-infra-queue-staging-dlq"; got != want {
		t.Fatalf("suffixed resource name %q, want %q", got, want)
	}
}

func TestTags(t *testing.T) {
	cfg, err := Resolve("dev")
	if err != nil {
		t.Fatalf("resolve dev: %v", err)
	}
	want := map[string]string{
		"Environment": "dev",
		"Project":     "aws-cdk-infra",
		"ManagedBy":   "CDK",
	}
	if got := cfg.Tags(); !reflect.DeepEqual(got, want) {
		t.Fatalf("tags %#v, want %#v", got, want)
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cfg, err := Resolve("dev")
	if err != nil {
		t.Fatalf("resolve dev: %v", err)
	}

	broken := cfg
	broken.Search.InstanceType = ""
	if err := broken.validate(); err == nil {
		t.Fatal("expected validation failure for blank search instance type")
	}

	inverted := cfg
	inverted.Database.MinCapacity = 4.0
	inverted.Database.MaxCapacity = 2.0
	if err := inverted.validate(); err == nil {
		t.Fatal("expected validation failure for inverted capacity range")
	}
}
