package domain

type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type Recipe []Ingredient

type Drink struct {
	ID     int64
	Title  string
	Recipe Recipe
}

type DrinkShort struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type DrinkLong struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

func (d Drink) Short() DrinkShort {
	return DrinkShort{ID: d.ID, Title: d.Title}
}

func (d Drink) Long() DrinkLong {
	recipe := d.Recipe
	if recipe == nil {
		recipe = Recipe{}
	}
	return DrinkLong{ID: d.ID, Title: d.Title, Recipe: recipe}
}
