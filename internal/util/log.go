package util

const (
	// package keys
	PackageKey = "package"

	PackageMain     = "main"
	PackageAlbum    = "album"
	PackageGallery  = "gallery"
	PackagePicture  = "picture"
	PackagePipeline = "pipeline"
	PackageQuota    = "quota"
	PackageStorage  = "storage"

	// component keys
	ComponentKey = "component"

	ComponentMain           = "main"
	ComponentGallery        = "gallery"
	ComponentPictureService = "picture service"
	ComponentAlbumService   = "album service"
	ComponentQuotaEngine    = "quota engine"
	ComponentBlobStore      = "blob store"

	// service keys
	ServiceKey = "service"

	ServiceGallery = "lumapix"
)
