// Package model defines the records the engines operate on: points of
// interest, universities, neighborhoods with computed metrics, and market
// analyses.
package model

// Category classifies a point of interest.
type Category string

const (
	CategoryUniversity Category = "university"
	CategoryDormitory  Category = "dormitory" // existing student housing
	CategoryTransport  Category = "transport" // generic transport hub
	CategoryMetro      Category = "metro"
	CategoryBus        Category = "bus"
	CategoryTrain      Category = "train"
	CategoryShopping   Category = "shopping"
	CategoryGrocery    Category = "grocery"
	CategoryRestaurant Category = "restaurant"
	CategoryNightlife  Category = "nightlife"
	CategoryLibrary    Category = "library"
	CategorySports     Category = "sports"
	CategoryHealthcare Category = "healthcare"
	CategoryPark       Category = "park"
)

// Categories lists every known category in a stable order.
func Categories() []Category {
	return []Category{
		CategoryUniversity, CategoryDormitory,
		CategoryTransport, CategoryMetro, CategoryBus, CategoryTrain,
		CategoryShopping, CategoryGrocery, CategoryRestaurant, CategoryNightlife,
		CategoryLibrary, CategorySports, CategoryHealthcare, CategoryPark,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// TransitCategories are the stop types counted for transport access.
func TransitCategories() []Category {
	return []Category{CategoryTransport, CategoryMetro, CategoryBus, CategoryTrain}
}

// AmenityCategories are the day-to-day amenity types used for amenity
// coverage counts.
func AmenityCategories() []Category {
	return []Category{
		CategoryGrocery, CategoryRestaurant, CategoryShopping,
		CategoryLibrary, CategorySports, CategoryHealthcare,
	}
}

// LeisureCategories feed the cultural scene score.
func LeisureCategories() []Category {
	return []Category{
		CategoryRestaurant, CategoryNightlife, CategorySports,
		CategoryPark, CategoryLibrary,
	}
}

// EssentialCategories are the must-have types for student daily life,
// used by the convenience score.
func EssentialCategories() []Category {
	return []Category{
		CategoryGrocery, CategoryRestaurant,
		CategoryTransport, CategoryMetro, CategoryBus,
	}
}

// LifestyleCategories are the nice-to-have types for the convenience score.
func LifestyleCategories() []Category {
	return []Category{CategoryShopping, CategoryNightlife, CategorySports, CategoryPark}
}
