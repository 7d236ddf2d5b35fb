package deploy

import (
	"context"
	"regexp"

	"github.com/Masterminds/semver"

	"deploy.dev/kubernetes-deploy/pkg/cluster"
)

var semverRegex = regexp.MustCompile(semver.SemVerRegex)

// serverMinorVersion runs "version --short" and extracts the server's
// semver, used to pick the HorizontalPodAutoscaler prune-whitelist entry
// (spec §4.6 / §9). A version that can't be parsed is treated as "current"
// (post-1.5) per §9's "new server versions should fall into the everything
// else bucket".
func serverMinorVersion(ctx context.Context, c cluster.Client) *semver.Version {
	result, err := c.Run(ctx, cluster.RunOptions{UseNamespace: false, UseContext: true, LogFailure: true}, "version", "--short")
	if err != nil || !result.Success() {
		return nil
	}
	matches := semverRegex.FindAllString(result.Stdout, -1)
	if len(matches) == 0 {
		return nil
	}
	// version --short prints both client and server versions; the server
	// line comes last.
	v, err := semver.NewVersion(matches[len(matches)-1])
	if err != nil {
		return nil
	}
	return v
}

var legacyServer = semver.MustParse("1.6.0")

// isLegacyServer reports whether v predates the 1.6 HPA API-group switch.
func isLegacyServer(v *semver.Version) bool {
	if v == nil {
		return false
	}
	return v.LessThan(legacyServer)
}
