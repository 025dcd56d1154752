package columndb

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// blobNameDigits is the zero-padded width of a log number in a blob
// file's base name, e.g. "000042.dat".
const blobNameDigits = 6

// recoverLogCounter scans prefix for existing blob files and returns
// the log number the first rotate() call after Open should hand out.
//
// If the directory does not exist, the counter is seeded from
// serverID<<14 alone — this repository assumes the caller has already
// created db_prefix before calling Open, and logs that assumption
// rather than silently treating a missing directory as "no prior data".
// See DESIGN.md, open question 2.
//
// Malformed blob file names are logged and skipped rather than failing
// the open.
func recoverLogCounter(env Env, prefix string, serverID uint32, log *zap.Logger) (uint32, error) {
	base := uint32(serverID) << 14

	if !env.FileExists(prefix) {
		log.Warn("blob directory does not exist at open, assuming caller pre-creates it",
			zap.String("prefix", prefix))
		return base, nil
	}

	children, err := env.GetChildren(prefix)
	if err != nil {
		return 0, Class.Wrap(err)
	}

	maxSeen := base
	for _, name := range children {
		n, ok := parseBlobLogNumber(name)
		if !ok {
			log.Warn("skipping unparsable blob file name during recovery",
				zap.String("name", name))
			continue
		}
		if n > maxSeen {
			maxSeen = n
		}
	}

	return maxSeen + 1, nil
}

// parseBlobLogNumber extracts the six-digit log number from a blob file
// base name of the form "NNNNNN.dat". It returns ok=false for anything
// else, including names that are the right length but not all digits.
func parseBlobLogNumber(name string) (uint32, bool) {
	if !strings.HasSuffix(name, ".dat") {
		return 0, false
	}
	stem := strings.TrimSuffix(name, ".dat")
	if len(stem) != blobNameDigits {
		return 0, false
	}
	n, err := strconv.ParseUint(stem, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
