package query

// Filter names understood by the CDO v2 API.
const (
	FilterDatasetID          = "datasetid"
	FilterDataTypeID         = "datatypeid"
	FilterDataCategoryID     = "datacategoryid"
	FilterLocationID         = "locationid"
	FilterLocationCategoryID = "locationcategoryid"
	FilterStationID          = "stationid"
	FilterExtent             = "extent"
	FilterStartDate          = "startdate"
	FilterEndDate            = "enddate"
	FilterUnits              = "units"
	FilterSortField          = "sortfield"
	FilterSortOrder          = "sortorder"
	FilterIncludeMetadata    = "includemetadata"
)

// Resource describes one addressable CDO endpoint: its path, the filters it
// accepts and the record fields that identify a result.
type Resource struct {
	Name       string
	Endpoint   string
	Filters    []string
	NaturalKey []string
}

var idKey = []string{"id"}

// The seven CDO v2 resources.
var (
	Datasets = Resource{
		Name:     "datasets",
		Endpoint: "datasets",
		Filters: []string{
			FilterDataTypeID, FilterLocationID, FilterStationID,
			FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	DataCategories = Resource{
		Name:     "datacategories",
		Endpoint: "datacategories",
		Filters: []string{
			FilterDatasetID, FilterLocationID, FilterStationID,
			FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	DataTypes = Resource{
		Name:     "datatypes",
		Endpoint: "datatypes",
		Filters: []string{
			FilterDatasetID, FilterLocationID, FilterStationID, FilterDataCategoryID,
			FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	LocationCategories = Resource{
		Name:     "locationcategories",
		Endpoint: "locationcategories",
		Filters: []string{
			FilterDatasetID, FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	Locations = Resource{
		Name:     "locations",
		Endpoint: "locations",
		Filters: []string{
			FilterDatasetID, FilterLocationCategoryID, FilterDataCategoryID,
			FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	Stations = Resource{
		Name:     "stations",
		Endpoint: "stations",
		Filters: []string{
			FilterDatasetID, FilterLocationID, FilterDataCategoryID, FilterDataTypeID,
			FilterExtent, FilterStartDate, FilterEndDate, FilterSortField, FilterSortOrder,
		},
		NaturalKey: idKey,
	}

	// Data holds observations; one record per station, datatype and date.
	Data = Resource{
		Name:     "data",
		Endpoint: "data",
		Filters: []string{
			FilterDatasetID, FilterDataTypeID, FilterLocationID, FilterStationID,
			FilterStartDate, FilterEndDate, FilterUnits,
			FilterSortField, FilterSortOrder, FilterIncludeMetadata,
		},
		NaturalKey: []string{"station", "datatype", "date"},
	}
)

var resources = []Resource{
	Datasets, DataCategories, DataTypes, LocationCategories, Locations, Stations, Data,
}

// Resources returns every known resource.
func Resources() []Resource {
	out := make([]Resource, len(resources))
	copy(out, resources)
	return out
}

// ResourceByName looks up a resource by its name (e.g. "stations").
func ResourceByName(name string) (Resource, bool) {
	for _, r := range resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Recognizes reports whether name is a filter accepted by the resource.
func (r Resource) Recognizes(name string) bool {
	for _, f := range r.Filters {
		if f == name {
			return true
		}
	}
	return false
}
