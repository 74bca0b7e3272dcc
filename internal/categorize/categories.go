package categorize

// Default category vocabularies offered to the classification oracle.
// These are preferences, not a closed enumeration: the oracle may answer
// with novel labels and they are accepted as long as they are non-empty.
var (
	DefaultIncomeCategories = []string{
		"Nómina",
		"Ingresos por Alquiler",
		"Transferencias Recibidas",
		"Intereses y Dividendos",
		"Otros Ingresos",
	}

	DefaultExpenseCategories = []string{
		"Vivienda",
		"Supermercado",
		"Restaurantes y Ocio",
		"Transporte",
		"Suscripciones",
		"Compras Online",
		"Salud",
		"Educación",
		"Viajes",
		"Otros Gastos",
	}
)
