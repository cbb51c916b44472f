package config

import (
	"fmt"
	"sort"
	"strings"
)

// Shared resource constants. These are the same in every environment; anything
// that legitimately differs between environments belongs on EnvironmentConfig.
const (
	DefaultRegion  = "ap-southeast-2"
	ProjectName    = "aws-cdk-infra"
	ParameterRoot  = "infra"
	DatabaseName   = "appdb"
	MasterUsername = "admin"

	PasswordLength     = 32
	RandomSuffixLength = 16
	// Characters that break shell quoting or MySQL connection strings.
	ExcludedPasswordChars = " %+~`#$&*()|[]{}:;<>?!'/\\\"@"

	AuroraEngineVersion = "3.02.0"
	OpenSearchVersion   = "OpenSearch_2.11"

	VpcCIDR        = "10.0.0.0/16"
	SubnetCIDRMask = 24
	DefaultMaxAZs  = 3

	HTTPPort  = 80
	HTTPSPort = 443
	MySQLPort = 3306

	DLQAgeThresholdSeconds      = 3600
	DLQEvaluationPeriods        = 2
	BatchQueueVisibilitySeconds = 300
	DefaultVisibilitySeconds    = 30
	MessageRetentionSeconds     = 1209600 // 14 days
	SnapshotWindow              = "03:00-04:00"
)

// AuroraParameters are applied to the cluster parameter group.
func AuroraParameters() map[string]string {
	return map[string]string{
		"innodb_buffer_pool_size": "{DBInstanceClassMemory*3/4}",
		"max_connections":         "1000",
		"slow_query_log":          "1",
		"long_query_time":         "2",
	}
}

// OpenSearchAdvancedOptions are applied to the domain.
func OpenSearchAdvancedOptions() map[string]string {
	return map[string]string{
		"rest.action.multi.allow_explicit_index": "true",
		"indices.fielddata.cache.size":           "20%",
		"indices.query.bool.max_clause_count":    "1024",
	}
}

type NetworkConfig struct {
	CIDR            string `config:"vpcCidr"`
	MaxAZs          int    `config:"maxAzs"`
	NATGatewayPerAZ bool   `config:"natGatewayPerAz"`
	FlowLogs        bool   `config:"flowLogs"`
}

type DatabaseConfig struct {
	InstanceClass       string  `config:"rdsInstanceClass"`
	MinCapacity         float64 `config:"rdsMinCapacity"`
	MaxCapacity         float64 `config:"rdsMaxCapacity"`
	BackupRetentionDays int     `config:"rdsBackupRetentionDays"`
	MultiAZ             bool    `config:"rdsMultiAz"`
	DeletionProtection  bool    `config:"rdsDeletionProtection"`
}

type SearchConfig struct {
	InstanceType    string `config:"opensearchInstanceType"`
	InstanceCount   int    `config:"opensearchInstanceCount"`
	EBSVolumeSizeGB int    `config:"opensearchEbsVolumeSize"`
}

type QueueConfig struct {
	VisibilityTimeoutSeconds int `config:"sqsVisibilityTimeoutSeconds"`
	MessageRetentionSeconds  int `config:"sqsMessageRetentionSeconds"`
	MaxReceiveCount          int `config:"sqsMaxReceiveCount"`
}

type SecretsConfig struct {
	RotationDays    int  `config:"secretsRotationDays"`
	RotationEnabled bool `config:"secretsRotationEnabled"`
}

// EnvironmentConfig is the full set of per-environment settings. Every field is
// populated explicitly in the environment table; Resolve rejects any config
// with an unset field so dev and prod can never drift apart silently.
type EnvironmentConfig struct {
	Name        string `config:"envName"`
	Region      string `config:"region"`
	ProjectName string `config:"projectName"`

	Network  NetworkConfig
	Database DatabaseConfig
	Search   SearchConfig
	Queues   QueueConfig
	Secrets  SecretsConfig

	DetailedMonitoring bool `config:"detailedMonitoring"`
	XRayTracing        bool `config:"xrayTracing"`
}

// UnknownEnvironmentError is returned when a name outside the environment
// table is resolved. There is deliberately no fallback environment.
type UnknownEnvironmentError struct {
	Name  string
	Known []string
}

func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q, available: %s", e.Name, strings.Join(e.Known, ", "))
}

// Environments returns a fresh copy of the environment table. Callers own the
// returned map; mutating it never affects later resolutions.
func Environments() map[string]EnvironmentConfig {
	return map[string]EnvironmentConfig{
		"dev": {
			Name:        "dev",
			Region:      DefaultRegion,
			ProjectName: ProjectName,
			Network: NetworkConfig{
				CIDR:            VpcCIDR,
				MaxAZs:          2,
				NATGatewayPerAZ: false,
				FlowLogs:        true,
			},
			Database: DatabaseConfig{
				InstanceClass:       "db.serverless",
				MinCapacity:         0.5,
				MaxCapacity:         2.0,
				BackupRetentionDays: 7,
				MultiAZ:             false,
				DeletionProtection:  false,
			},
			Search: SearchConfig{
				InstanceType:    "t3.small.search",
				InstanceCount:   1,
				EBSVolumeSizeGB: 20,
			},
			Queues: QueueConfig{
				VisibilityTimeoutSeconds: DefaultVisibilitySeconds,
				MessageRetentionSeconds:  MessageRetentionSeconds,
				MaxReceiveCount:          3,
			},
			Secrets: SecretsConfig{
				RotationDays:    30,
				RotationEnabled: false,
			},
			DetailedMonitoring: false,
			XRayTracing:        true,
		},
		"staging": {
			Name:        "staging",
			Region:      DefaultRegion,
			ProjectName: ProjectName,
			Network: NetworkConfig{
				CIDR:            VpcCIDR,
				MaxAZs:          DefaultMaxAZs,
				NATGatewayPerAZ: true,
				FlowLogs:        true,
			},
			Database: DatabaseConfig{
				InstanceClass:       "db.serverless",
				MinCapacity:         1.0,
				MaxCapacity:         8.0,
				BackupRetentionDays: 14,
				MultiAZ:             true,
				DeletionProtection:  false,
			},
			Search: SearchConfig{
				InstanceType:    "r6g.large.search",
				InstanceCount:   2,
				EBSVolumeSizeGB: 100,
			},
			Queues: QueueConfig{
				VisibilityTimeoutSeconds: DefaultVisibilitySeconds,
				MessageRetentionSeconds:  MessageRetentionSeconds,
				MaxReceiveCount:          3,
			},
			Secrets: SecretsConfig{
				RotationDays:    30,
				RotationEnabled: true,
			},
			DetailedMonitoring: true,
			XRayTracing:        true,
		},
		"prod": {
			Name:        "prod",
			Region:      DefaultRegion,
			ProjectName: ProjectName,
			Network: NetworkConfig{
				CIDR:            VpcCIDR,
				MaxAZs:          DefaultMaxAZs,
				NATGatewayPerAZ: true,
				FlowLogs:        true,
			},
			Database: DatabaseConfig{
				InstanceClass:       "db.serverless",
				MinCapacity:         2.0,
				MaxCapacity:         16.0,
				BackupRetentionDays: 30,
				MultiAZ:             true,
				DeletionProtection:  true,
			},
			Search: SearchConfig{
				InstanceType:    "r6g.large.search",
				InstanceCount:   3,
				EBSVolumeSizeGB: 200,
			},
			Queues: QueueConfig{
				VisibilityTimeoutSeconds: DefaultVisibilitySeconds,
				MessageRetentionSeconds:  MessageRetentionSeconds,
				MaxReceiveCount:          3,
			},
			Secrets: SecretsConfig{
				RotationDays:    30,
				RotationEnabled: true,
			},
			DetailedMonitoring: true,
			XRayTracing:        true,
		},
	}
}

// EnvironmentNames returns the supported environment names, sorted.
func EnvironmentNames() []string {
	envs := Environments()
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the configuration for the named environment. It is a pure
// lookup over the static table: the same name always yields an identical
// config, and an unrecognized name fails with UnknownEnvironmentError.
func Resolve(name string) (EnvironmentConfig, error) {
	cfg, ok := Environments()[name]
	if !ok {
		return EnvironmentConfig{}, &UnknownEnvironmentError{Name: name, Known: EnvironmentNames()}
	}
	if err := cfg.validate(); err != nil {
		return EnvironmentConfig{}, fmt.Errorf("environment %q: %w", name, err)
	}
	return cfg, nil
}

// validate rejects a config with any required field left at its zero value.
// Boolean flags are exempt: false is a legitimate explicit setting.
func (c EnvironmentConfig) validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"name", c.Name != ""},
		{"region", c.Region != ""},
		{"projectName", c.ProjectName != ""},
		{"network.cidr", c.Network.CIDR != ""},
		{"network.maxAzs", c.Network.MaxAZs > 0},
		{"database.instanceClass", c.Database.InstanceClass != ""},
		{"database.minCapacity", c.Database.MinCapacity > 0},
		{"database.maxCapacity", c.Database.MaxCapacity > 0},
		{"database.backupRetentionDays", c.Database.BackupRetentionDays > 0},
		{"search.instanceType", c.Search.InstanceType != ""},
		{"search.instanceCount", c.Search.InstanceCount > 0},
		{"search.ebsVolumeSize", c.Search.EBSVolumeSizeGB > 0},
		{"queues.visibilityTimeoutSeconds", c.Queues.VisibilityTimeoutSeconds > 0},
		{"queues.messageRetentionSeconds", c.Queues.MessageRetentionSeconds > 0},
		{"queues.maxReceiveCount", c.Queues.MaxReceiveCount > 0},
		{"secrets.rotationDays", c.Secrets.RotationDays > 0},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("setting %s is not populated", check.name)
		}
	}
	if c.Database.MinCapacity > c.Database.MaxCapacity {
		return fmt.Errorf("database capacity range inverted: min %.1f > max %.1f",
			c.Database.MinCapacity, c.Database.MaxCapacity)
	}
	return nil
}

// IsDev reports whether this is the development environment.
func (c EnvironmentConfig) IsDev() bool { return c.Name == "dev" }

// IsProd reports whether this is the production environment.
func (c EnvironmentConfig) IsProd() bool { return c.Name == "prod" }

// ResourceName builds the standard {project}-{resource}-{env} name. The triple
// is the uniqueness key for every named resource in an account/region.
func (c EnvironmentConfig) ResourceName(resourceType string, suffix ...string) string {
	parts := append([]string{c.ProjectName, resourceType, c.Name}, suffix...)
	return strings.Join(parts, "-")
}

// Tags returns the common tags applied to every taggable resource.
func (c EnvironmentConfig) Tags() map[string]string {
	return map[string]string{
		"Environment": c.Name,
		"Project":     c.ProjectName,
		"ManagedBy":   "CDK",
	}
}
