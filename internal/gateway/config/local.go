package config

import "github.com/spf13/viper"

// localDefaults points diagnostics at the docker-compose minio service.
func localDefaults(v *viper.Viper) {
	v.SetDefault("diagnostics_s3_endpoint", "minio:9000")
	v.SetDefault("diagnostics_s3_access_key", "mindmap")
	v.SetDefault("diagnostics_s3_secret_key", "mindmap123")
	v.SetDefault("diagnostics_s3_use_ssl", false)
}
