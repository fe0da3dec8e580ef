package services

import (
	"activation_server/repository"
	"activation_server/serviceerror"

	"gorm.io/gorm"
)

// lookupApplicationVersion resolves an application key to its credential
// tuple, through the cache when possible. Both the activation and the
// signature paths resolve the key on every request.
func lookupApplicationVersion(tx *gorm.DB, cache IRedisService, applications repository.IApplicationRepository, applicationKey string) (*CachedApplicationVersion, error) {
	if cache != nil {
		if cached, err := cache.GetApplicationVersion(applicationKey); err == nil && cached != nil {
			return cached, nil
		}
	}
	version, err := applications.GetVersionByApplicationKey(tx, applicationKey)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, serviceerror.New(serviceerror.CodeInvalidRequest)
		}
		return nil, err
	}
	entry := &CachedApplicationVersion{
		VersionId:         version.Id,
		ApplicationId:     version.ApplicationId,
		ApplicationKey:    version.ApplicationKey,
		ApplicationSecret: version.ApplicationSecret,
		Supported:         version.Supported,
	}
	if cache != nil {
		_ = cache.StoreApplicationVersion(entry)
	}
	return entry, nil
}
