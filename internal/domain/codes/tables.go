package codes

// Well-known values referenced by validation and XML generation.
const (
	UnitedStates = "United States of America"

	AmericanSamoa          = "American Samoa"
	Guam                   = "Guam"
	NorthernMarianaIslands = "Northern Mariana Islands"
	PuertoRico             = "Puerto Rico"
	USVirginIslands        = "U.S. Virgin Islands"

	TribalOther = "Other"

	TaxEIN     = "EIN"
	TaxSSNITIN = "SSN/ITIN"
	TaxForeign = "Foreign"

	DocDriversLicense = "State issued driver's license"
	DocLocalTribalID  = "State/local/tribe-issued ID"
	DocUSPassport     = "U.S. passport"
	DocForeignPass    = "Foreign passport"

	AddressBusiness    = "business"
	AddressResidential = "residential"
)

// hasStates lists the countries that are modelled as US pseudo-states. For
// these the state value must equal the country value.
var hasStates = map[string]bool{
	AmericanSamoa:          true,
	Guam:                   true,
	NorthernMarianaIslands: true,
	PuertoRico:             true,
	USVirginIslands:        true,
}

// HasStates reports whether country is a US territory modelled as a state.
func HasStates(country string) bool { return hasStates[country] }

// IsDomestic reports whether a jurisdiction uses the domestic (state based)
// branch of the filing: the United States itself or one of its territories.
func IsDomestic(country string) bool { return country == UnitedStates || hasStates[country] }

// TaxIDTypes maps tax identification types to FinCEN PartyIdentificationTypeCode.
var TaxIDTypes = newTable("tax id type", []Pair{
	{TaxSSNITIN, "1"},
	{TaxEIN, "2"},
	{TaxForeign, "9"},
})

// DocTypes maps identifying document types to FinCEN PartyIdentificationTypeCode.
var DocTypes = newTable("document type", []Pair{
	{DocDriversLicense, "37"},
	{DocLocalTribalID, "38"},
	{DocUSPassport, "39"},
	{DocForeignPass, "40"},
})

// FinCENIDTypeCode is the PartyIdentificationTypeCode for a FinCEN identifier.
const FinCENIDTypeCode = "41"

// AddressTypes holds the applicant address kinds.
var AddressTypes = newTable("address type", []Pair{
	{AddressBusiness, "B"},
	{AddressResidential, "R"},
})

// States maps US states, DC and the territories to their two-letter codes.
var States = newTable("state", []Pair{
	{"Alabama", "AL"}, {"Alaska", "AK"}, {"Arizona", "AZ"}, {"Arkansas", "AR"},
	{"California", "CA"}, {"Colorado", "CO"}, {"Connecticut", "CT"}, {"Delaware", "DE"},
	{"District of Columbia", "DC"}, {"Florida", "FL"}, {"Georgia", "GA"}, {"Hawaii", "HI"},
	{"Idaho", "ID"}, {"Illinois", "IL"}, {"Indiana", "IN"}, {"Iowa", "IA"},
	{"Kansas", "KS"}, {"Kentucky", "KY"}, {"Louisiana", "LA"}, {"Maine", "ME"},
	{"Maryland", "MD"}, {"Massachusetts", "MA"}, {"Michigan", "MI"}, {"Minnesota", "MN"},
	{"Mississippi", "MS"}, {"Missouri", "MO"}, {"Montana", "MT"}, {"Nebraska", "NE"},
	{"Nevada", "NV"}, {"New Hampshire", "NH"}, {"New Jersey", "NJ"}, {"New Mexico", "NM"},
	{"New York", "NY"}, {"North Carolina", "NC"}, {"North Dakota", "ND"}, {"Ohio", "OH"},
	{"Oklahoma", "OK"}, {"Oregon", "OR"}, {"Pennsylvania", "PA"}, {"Rhode Island", "RI"},
	{"South Carolina", "SC"}, {"South Dakota", "SD"}, {"Tennessee", "TN"}, {"Texas", "TX"},
	{"Utah", "UT"}, {"Vermont", "VT"}, {"Virginia", "VA"}, {"Washington", "WA"},
	{"West Virginia", "WV"}, {"Wisconsin", "WI"}, {"Wyoming", "WY"},
	{AmericanSamoa, "AS"}, {Guam, "GU"}, {NorthernMarianaIslands, "MP"},
	{PuertoRico, "PR"}, {USVirginIslands, "VI"},
})

// Countries maps country names to ISO 3166-1 alpha-2 codes.
var Countries = newTable("country", []Pair{
	{UnitedStates, "US"},
	{AmericanSamoa, "AS"}, {Guam, "GU"}, {NorthernMarianaIslands, "MP"},
	{PuertoRico, "PR"}, {USVirginIslands, "VI"},
	{"Argentina", "AR"}, {"Australia", "AU"}, {"Austria", "AT"}, {"Bahamas", "BS"},
	{"Belgium", "BE"}, {"Bermuda", "BM"}, {"Brazil", "BR"}, {"British Virgin Islands", "VG"},
	{"Bulgaria", "BG"}, {"Canada", "CA"}, {"Cayman Islands", "KY"}, {"Chile", "CL"},
	{"China", "CN"}, {"Colombia", "CO"}, {"Costa Rica", "CR"}, {"Croatia", "HR"},
	{"Cyprus", "CY"}, {"Czech Republic", "CZ"}, {"Denmark", "DK"}, {"Dominican Republic", "DO"},
	{"Ecuador", "EC"}, {"Egypt", "EG"}, {"El Salvador", "SV"}, {"Estonia", "EE"},
	{"Finland", "FI"}, {"France", "FR"}, {"Germany", "DE"}, {"Ghana", "GH"},
	{"Greece", "GR"}, {"Guatemala", "GT"}, {"Honduras", "HN"}, {"Hong Kong", "HK"},
	{"Hungary", "HU"}, {"Iceland", "IS"}, {"India", "IN"}, {"Indonesia", "ID"},
	{"Ireland", "IE"}, {"Israel", "IL"}, {"Italy", "IT"}, {"Jamaica", "JM"},
	{"Japan", "JP"}, {"Kenya", "KE"}, {"Latvia", "LV"}, {"Lithuania", "LT"},
	{"Luxembourg", "LU"}, {"Malaysia", "MY"}, {"Malta", "MT"}, {"Mexico", "MX"},
	{"Netherlands", "NL"}, {"New Zealand", "NZ"}, {"Nigeria", "NG"}, {"Norway", "NO"},
	{"Pakistan", "PK"}, {"Panama", "PA"}, {"Peru", "PE"}, {"Philippines", "PH"},
	{"Poland", "PL"}, {"Portugal", "PT"}, {"Romania", "RO"}, {"Saudi Arabia", "SA"},
	{"Singapore", "SG"}, {"Slovakia", "SK"}, {"Slovenia", "SI"}, {"South Africa", "ZA"},
	{"South Korea", "KR"}, {"Spain", "ES"}, {"Sweden", "SE"}, {"Switzerland", "CH"},
	{"Taiwan", "TW"}, {"Thailand", "TH"}, {"Turkey", "TR"}, {"Ukraine", "UA"},
	{"United Arab Emirates", "AE"}, {"United Kingdom", "GB"}, {"Uruguay", "UY"},
	{"Venezuela", "VE"}, {"Vietnam", "VN"},
})

// TribalJurisdictions maps tribal jurisdictions to the FinCEN tribal code text.
var TribalJurisdictions = newTable("tribal jurisdiction", []Pair{
	{"Absentee-Shawnee Tribe of Indians of Oklahoma", "ABSENTEE_SHAWNEE"},
	{"Cherokee Nation", "CHEROKEE_NATION"},
	{"Cheyenne and Arapaho Tribes, Oklahoma", "CHEYENNE_ARAPAHO"},
	{"Chickasaw Nation", "CHICKASAW_NATION"},
	{"Choctaw Nation of Oklahoma", "CHOCTAW_NATION"},
	{"Confederated Tribes of the Colville Reservation", "COLVILLE"},
	{"Ho-Chunk Nation of Wisconsin", "HO_CHUNK"},
	{"Hopi Tribe of Arizona", "HOPI"},
	{"Muscogee (Creek) Nation", "MUSCOGEE_CREEK"},
	{"Navajo Nation, Arizona, New Mexico, & Utah", "NAVAJO"},
	{"Oneida Nation", "ONEIDA"},
	{"Osage Nation", "OSAGE"},
	{"Seminole Tribe of Florida", "SEMINOLE_FL"},
	{"Seneca Nation of Indians", "SENECA"},
	{"Tohono O'odham Nation of Arizona", "TOHONO_ODHAM"},
	{"Winnebago Tribe of Nebraska", "WINNEBAGO"},
	{TribalOther, "OTHER"},
})
