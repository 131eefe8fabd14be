package credentials

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
)

// DefaultRegion is used when every other region lookup step fails. A silent
// default can mask misconfiguration outside us-east-1, so the fallback is
// logged at warning level.
const DefaultRegion = "us-east-1"

const (
	regionEnvVar        = "AWS_REGION"
	defaultRegionEnvVar = "AWS_DEFAULT_REGION"
)

// ResolveRegion determines the signing region: explicit configuration,
// AWS_REGION, AWS_DEFAULT_REGION, the instance metadata placement region,
// then DefaultRegion. Each step's failure falls through to the next, region
// resolution is never fatal.
func ResolveRegion(ctx context.Context, explicit string, imds *InstanceMetadataProvider) string {
	if explicit != "" {
		return explicit
	}

	if region := os.Getenv(regionEnvVar); region != "" {
		log.Infof("Using AWS region from %s: %s.", regionEnvVar, region)
		return region
	}
	if region := os.Getenv(defaultRegionEnvVar); region != "" {
		log.Infof("Using AWS region from %s: %s.", defaultRegionEnvVar, region)
		return region
	}

	if imds != nil {
		region, err := imds.Region(ctx)
		if err == nil && region != "" {
			log.Infof("Using AWS region from instance metadata: %s.", region)
			return region
		}
		if err != nil {
			log.Debugf("Region lookup via instance metadata failed: %v.", err)
		}
	}

	log.Warnf("Could not determine AWS region, falling back to %s.", DefaultRegion)
	return DefaultRegion
}
