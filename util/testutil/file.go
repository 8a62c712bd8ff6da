package testutil

import (
	"os"
	"path/filepath"
)

// S3CfgTemplate is a trimmed copy of the site-wide s3cmd config that
// ships in our batch AMIs at /etc/generic-msi.s3cfg.
const S3CfgTemplate = `[default]
bucket_location = US
host_base = s3.amazonaws.com
host_bucket = %(bucket)s.s3.amazonaws.com
signature_v2 = False
use_https = True
`

// WriteS3CfgTemplate writes S3CfgTemplate into dir and returns its path.
func WriteS3CfgTemplate(dir string) (string, error) {
	path := filepath.Join(dir, "generic-msi.s3cfg")
	return path, os.WriteFile(path, []byte(S3CfgTemplate), 0644)
}
