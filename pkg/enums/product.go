package enums

// ProductStatus marks catalog visibility.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusDeleted  ProductStatus = "deleted"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusInactive,
	ProductStatusDeleted,
}

func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	return known(validProductStatuses, s)
}

// ParseProductStatus converts raw input into a ProductStatus.
func ParseProductStatus(value string) (ProductStatus, error) {
	return parse(validProductStatuses, value, "product status")
}

// SizeType groups size charts.
type SizeType string

const (
	SizeTypeTopwear    SizeType = "topwear"
	SizeTypeBottomwear SizeType = "bottomwear"
)

var validSizeTypes = []SizeType{
	SizeTypeTopwear,
	SizeTypeBottomwear,
}

func (s SizeType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SizeType.
func (s SizeType) IsValid() bool {
	return known(validSizeTypes, s)
}

// ParseSizeType converts raw input into a SizeType.
func ParseSizeType(value string) (SizeType, error) {
	return parse(validSizeTypes, value, "size type")
}
