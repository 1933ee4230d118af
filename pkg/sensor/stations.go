package sensor

// Station is an oil pipeline station or refinery terminal in Thailand.
type Station struct {
	Province string
	Location string
	Lat      float64
	Lng      float64
}

// Stations backs the location fields of the amr meter.
var Stations = []Station{
	{"กรุงเทพมหานคร", "Bangkok Pipeline Terminal", 13.7563, 100.5018},
	{"ปทุมธานี", "Region 9 Pipeline Operations Center", 14.0208, 100.5250},
	{"สมุทรปราการ", "Bang Pa-in Oil Pipeline Station", 13.5951, 100.6114},

	{"ระยอง", "Map Ta Phut Refinery Station", 12.6517, 101.1595},
	{"ระยอง", "SPRC Map Ta Phut Terminal", 12.6833, 101.2378},
	{"ชลบุรี", "Thaioil Sriracha Refinery", 13.1742, 100.9287},
	{"ชลบุรี", "Sriracha Oil Terminal", 13.1166, 100.8666},
	{"ชลบุรี", "Si Racha Pipeline Junction", 13.1339, 100.9500},

	{"สระบุรี", "Saraburi Pipeline Station", 14.5289, 100.9103},
	{"สระบุรี", "Sao Hai District Oil Terminal", 14.5500, 101.0500},
	{"ลพบุรี", "Lopburi Pipeline Junction", 14.7995, 100.6537},

	{"ขอนแก่น", "Khon Kaen Distribution Terminal", 16.4419, 102.8356},
	{"ขอนแก่น", "Ban Phai Pipeline Station", 16.0667, 102.7167},
	{"นครราชสีมา", "Korat Oil Terminal", 14.9799, 102.0977},
	{"อุดรธานี", "Udon Thani Pipeline Station", 17.4138, 102.7876},

	{"เชียงใหม่", "Chiang Mai Distribution Center", 18.7883, 98.9853},
	{"ลำปาง", "Lampang Oil Terminal", 18.2859, 99.5128},
	{"พิษณุโลก", "Phitsanulok Pipeline Station", 16.8295, 100.2615},
	{"กำแพงเพชร", "Kamphaeng Phet Terminal", 16.4828, 99.5222},

	{"สงขลา", "Songkhla Refinery Terminal", 7.1898, 100.5954},
	{"สุราษฎร์ธานี", "Surat Thani Distribution", 9.1347, 99.3331},
	{"ภูเก็ต", "Phuket Oil Terminal", 7.8804, 98.3923},

	{"สมุทรสาคร", "Mahachai Pipeline Station", 13.5475, 100.2744},
	{"กาญจนบุรี", "Kanchanaburi Terminal", 14.0228, 99.5328},

	{"นครสวรรค์", "Nakhon Sawan Junction", 15.6930, 100.1225},
	{"อุบลราชธานี", "Ubon Ratchathani Station", 15.2287, 104.8564},
	{"บุรีรัมย์", "Buriram Pipeline Terminal", 14.9930, 103.1029},
}
