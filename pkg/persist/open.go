package persist

import (
	"fmt"

	"github.com/Sumatoshi-tech/reqsketch/pkg/config"
)

// OpenStore builds the store selected by cfg. BackendNone yields a nil Store.
func OpenStore(cfg config.StorageConfig) (Store, error) {
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendNone, "":
		return nil, nil //nolint:nilnil // no persistence configured.
	case config.BackendFile:
		return NewFileStore(cfg.Directory, codec)
	case config.BackendBolt:
		return OpenBoltStore(cfg.BoltPath, codec)
	case config.BackendS3:
		return NewS3Store(S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.AWSAccessKeyID,
			SecretKey: cfg.AWSSecretAccessKey,
			UseSSL:    cfg.S3UseSSL,
		}, codec)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}
