package config

type MinioConfig struct {
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	Endpoint   string `yaml:"endpoint"`
	UseSSL     bool   `yaml:"useSSL"`
	Region     string `yaml:"region"`
	BucketName string `yaml:"bucketName"`
}

func (m *MinioConfig) applyEnv() {
	setString(&m.AccessKey, "MINIO_ACCESS_KEY")
	setString(&m.SecretKey, "MINIO_SECRET_KEY")
	setString(&m.Endpoint, "MINIO_ENDPOINT")
	setBool(&m.UseSSL, "MINIO_USE_SSL")
	setString(&m.Region, "MINIO_REGION")
	setString(&m.BucketName, "MINIO_BUCKET_NAME")
}
