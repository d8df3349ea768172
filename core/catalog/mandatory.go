package catalog

import (
	"fmt"

	"motor-tariff/core/tariff"
)

// RegisterMandatory registers the mandatory-insurance options of the 15-7-2024 tariff
func RegisterMandatory(c *Catalog) {
	c.Register(GroupCategories, string(tariff.CategoryPrivate), "خاصة (أفراد)")
	c.Register(GroupCategories, string(tariff.CategoryCommercial), "عامة (تجارية)")
	c.Register(GroupCategories, string(tariff.CategoryGovernment), "حكومية")
	c.Register(GroupCategories, string(tariff.CategoryRental), "تأجير")

	c.Register(GroupClassifications, "0", "غير حكومية (عادي)")
	c.Register(GroupClassifications, "1", "حكومية (خصم خاص)")
	c.Register(GroupClassifications, "2", "تخفيض طابع")
	c.Register(GroupClassifications, "3", "إعفاء طابع")

	c.Register(GroupPeriods, "12", "سنة كاملة (12 شهر)")
	c.Register(GroupPeriods, "6", "ستة أشهر")
	c.Register(GroupPeriods, "3", "ثلاثة أشهر")

	for i, label := range internalVehicleLabels {
		c.Register(GroupInternalVehicleTypes, fmt.Sprintf("%02d", i+1), label)
	}

	c.Register(GroupBorderVehicleTypes, string(tariff.BorderTourist), "سيارات سياحية (حدودي)")
	c.Register(GroupBorderVehicleTypes, string(tariff.BorderMotorcycle), "دراجات نارية (حدودي)")
	c.Register(GroupBorderVehicleTypes, string(tariff.BorderBus), "باصات نقل (حدودي)")
	c.Register(GroupBorderVehicleTypes, string(tariff.BorderOther), "بقية الفئات (حدودي)")
}

// internalVehicleLabels are indexed by base type - 1.
// The leading number is the classification code printed in the tariff book.
var internalVehicleLabels = [tariff.MaxBaseType]string{
	"01- سياحية قوة محرك حتى 20",
	"01- نقل وركوب قوة محرك حتى 20",
	"14- سياحية قوة محرك 21 وأكثر",
	"14- نقل وركوب قوة محرك 21 وأكثر",
	"15- ميكرو باص حتى 25 راكب",
	"13- باص بولمان 26 راكب وأكثر",
	"07- بيك آب حتى 3500 كغ قوة محرك 20",
	"07- شاحنة براد قوة محرك حتى 20",
	"07- شاحنة صهريج قوة محرك حتى 20",
	"05- بيك آب حتى 3500 كغ قوة محرك 21 - 40",
	"05- شاحنة فوق 3500 كغ قوة محرك 21 - 40",
	"05- شاحنة صهريج قوة محرك 21 - 40",
	"05- شاحنة براد قوة محرك 21 - 40",
	"06- شاحنة قوة محرك 41 وأكثر",
	"06- شاحنة صهريج قوة محرك 41 وأكثر",
	"06- شاحنة براد قوة محرك 41 وأكثر",
	"17- شاحنة + مقطورة",
	"18- قاطرة ونصف مقطورة",
	"18- قاطرة ونصف مقطورة براد",
	"18- قاطرة ونصف مقطورة صهريج",
	"03- آليات أشغال إسعاف إطفاء روافع قوة محرك 1 - 20",
	"03- آليات أشغال جبالة مضخة تنظيف قوة محرك 1 - 20",
	"03- آليات الأشغال الزراعية قوة محرك 1 - 20",
	"02- آليات أشغال إسعاف إطفاء روافع قوة محرك 21 - 40",
	"02- آليات أشغال جبالة مضخة تنظيف قوة محرك 21 - 40",
	"02- آليات الأشغال الزراعية قوة محرك 21 - 40",
	"04- آليات أشغال إسعاف إطفاء روافع قوة محرك41وأكثر",
	"04- آليات أشغال جبالة مضخة تنظيف قوة محرك41وأكثر",
	"04- آليات الأشغال الزراعية قوة محرك 41 وأكثر",
	"08- جرار زراعي قوة محرك 1 - 30",
	"09- جرار زراعي قوة محرك 31 وأكثر",
	"12- دراجة آلية عجلتان",
	"10- دراجة آلية 3 عجلات / عزاقة قوة محرك 1 - 20",
	"11- دراجة آلية 3 عجلات / عزاقة قوة محرك 21 وأكثر",
}

// VehicleLabel returns the tariff-book label of a base type
func VehicleLabel(baseType int) (string, bool) {
	if baseType < tariff.MinBaseType || baseType > tariff.MaxBaseType {
		return "", false
	}
	return internalVehicleLabels[baseType-1], true
}
