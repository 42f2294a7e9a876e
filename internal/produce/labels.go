package produce

// NumClasses is the size of the model's output layer.
const NumClasses = 36

type entry struct {
	Label    string
	Category Category
}

// table is indexed by the model's output class. Spellings follow the
// training set ("jalepeno", "raddish") because they are the model's labels.
var table = [NumClasses]entry{
	{"apple", Fruit},
	{"banana", Fruit},
	{"beetroot", Vegetable},
	{"bell pepper", Fruit},
	{"cabbage", Vegetable},
	{"capsicum", Vegetable},
	{"carrot", Vegetable},
	{"cauliflower", Vegetable},
	{"chilli pepper", Fruit},
	{"corn", Vegetable},
	{"cucumber", Vegetable},
	{"eggplant", Vegetable},
	// Garlic was never listed as either category; it is filed with the
	// bulbs (onion) rather than left to a default.
	{"garlic", Vegetable},
	{"ginger", Vegetable},
	{"grapes", Fruit},
	{"jalepeno", Fruit},
	{"kiwi", Fruit},
	{"lemon", Fruit},
	{"lettuce", Vegetable},
	{"mango", Fruit},
	{"onion", Vegetable},
	{"orange", Fruit},
	{"paprika", Fruit},
	{"pear", Fruit},
	{"peas", Vegetable},
	{"pineapple", Fruit},
	{"pomegranate", Fruit},
	{"potato", Vegetable},
	// Raddish and soy beans used to show as Fruit: the vegetable list had
	// them as "Radish" and "Soy Beans", which never matched these labels.
	{"raddish", Vegetable},
	{"soy beans", Vegetable},
	{"spinach", Vegetable},
	{"sweetcorn", Vegetable},
	{"sweetpotato", Vegetable},
	{"tomato", Vegetable},
	{"turnip", Vegetable},
	{"watermelon", Fruit},
}

var byDisplay = func() map[string]int {
	m := make(map[string]int, NumClasses)
	for i, e := range table {
		m[Capitalize(e.Label)] = i
	}
	return m
}()

// Labels returns the canonical labels in class-index order.
func Labels() []string {
	out := make([]string, NumClasses)
	for i, e := range table {
		out[i] = e.Label
	}
	return out
}

// FruitNames returns the display names of every fruit class, in class order.
func FruitNames() []string {
	return namesOf(Fruit)
}

// VegetableNames returns the display names of every vegetable class, in class order.
func VegetableNames() []string {
	return namesOf(Vegetable)
}

func namesOf(c Category) []string {
	var out []string
	for _, e := range table {
		if e.Category == c {
			out = append(out, Capitalize(e.Label))
		}
	}
	return out
}
