package netinfo

import "strings"

// Country-level IANA zone guesses for countries that span a single zone (or
// where one zone dominates). Multi-zone countries get a region sub-table.
var countryZones = map[string]string{
	"AR": "America/Argentina/Buenos_Aires",
	"AT": "Europe/Vienna",
	"BE": "Europe/Brussels",
	"CH": "Europe/Zurich",
	"CL": "America/Santiago",
	"CN": "Asia/Shanghai",
	"CO": "America/Bogota",
	"CZ": "Europe/Prague",
	"DE": "Europe/Berlin",
	"DK": "Europe/Copenhagen",
	"EG": "Africa/Cairo",
	"ES": "Europe/Madrid",
	"FI": "Europe/Helsinki",
	"FR": "Europe/Paris",
	"GB": "Europe/London",
	"GR": "Europe/Athens",
	"HK": "Asia/Hong_Kong",
	"HU": "Europe/Budapest",
	"ID": "Asia/Jakarta",
	"IE": "Europe/Dublin",
	"IL": "Asia/Jerusalem",
	"IN": "Asia/Kolkata",
	"IT": "Europe/Rome",
	"JP": "Asia/Tokyo",
	"KE": "Africa/Nairobi",
	"KR": "Asia/Seoul",
	"NG": "Africa/Lagos",
	"NL": "Europe/Amsterdam",
	"NO": "Europe/Oslo",
	"NZ": "Pacific/Auckland",
	"PE": "America/Lima",
	"PH": "Asia/Manila",
	"PL": "Europe/Warsaw",
	"PT": "Europe/Lisbon",
	"RO": "Europe/Bucharest",
	"SE": "Europe/Stockholm",
	"SG": "Asia/Singapore",
	"TH": "Asia/Bangkok",
	"TR": "Europe/Istanbul",
	"TW": "Asia/Taipei",
	"UA": "Europe/Kyiv",
	"UK": "Europe/London",
	"VN": "Asia/Ho_Chi_Minh",
	"ZA": "Africa/Johannesburg",
}

// Region sub-tables for multi-zone countries, keyed by the region name as the
// edge reports it. Each carries a country default for unmatched regions.
var usZones = map[string]string{
	"alaska":           "America/Anchorage",
	"arizona":          "America/Phoenix",
	"california":       "America/Los_Angeles",
	"colorado":         "America/Denver",
	"florida":          "America/New_York",
	"georgia":          "America/New_York",
	"hawaii":           "Pacific/Honolulu",
	"illinois":         "America/Chicago",
	"massachusetts":    "America/New_York",
	"minnesota":        "America/Chicago",
	"nevada":           "America/Los_Angeles",
	"new york":         "America/New_York",
	"oregon":           "America/Los_Angeles",
	"texas":            "America/Chicago",
	"utah":             "America/Denver",
	"virginia":         "America/New_York",
	"washington":       "America/Los_Angeles",
	"washington, d.c.": "America/New_York",
}

var caZones = map[string]string{
	"alberta":          "America/Edmonton",
	"british columbia": "America/Vancouver",
	"manitoba":         "America/Winnipeg",
	"nova scotia":      "America/Halifax",
	"ontario":          "America/Toronto",
	"quebec":           "America/Toronto",
	"saskatchewan":     "America/Regina",
}

var auZones = map[string]string{
	"new south wales":    "Australia/Sydney",
	"northern territory": "Australia/Darwin",
	"queensland":         "Australia/Brisbane",
	"south australia":    "Australia/Adelaide",
	"tasmania":           "Australia/Hobart",
	"victoria":           "Australia/Melbourne",
	"western australia":  "Australia/Perth",
}

var brZones = map[string]string{
	"acre":           "America/Rio_Branco",
	"amazonas":       "America/Manaus",
	"bahia":          "America/Bahia",
	"mato grosso":    "America/Cuiaba",
	"rio de janeiro": "America/Sao_Paulo",
	"sao paulo":      "America/Sao_Paulo",
	"são paulo":      "America/Sao_Paulo",
}

var mxZones = map[string]string{
	"baja california":     "America/Tijuana",
	"baja california sur": "America/Mazatlan",
	"chihuahua":           "America/Chihuahua",
	"mexico city":         "America/Mexico_City",
	"quintana roo":        "America/Cancun",
	"sonora":              "America/Hermosillo",
}

var regionalCountries = map[string]struct {
	regions map[string]string
	def     string
}{
	"US": {usZones, "America/New_York"},
	"CA": {caZones, "America/Toronto"},
	"AU": {auZones, "Australia/Sydney"},
	"BR": {brZones, "America/Sao_Paulo"},
	"MX": {mxZones, "America/Mexico_City"},
}

// DeriveTimezone maps country (and region, for multi-zone countries) to an
// IANA zone name. Unknown inputs yield "Unknown".
func DeriveTimezone(country, region string) string {
	if sub, ok := regionalCountries[country]; ok {
		if zone, ok := sub.regions[strings.ToLower(strings.TrimSpace(region))]; ok {
			return zone
		}
		return sub.def
	}
	if zone, ok := countryZones[country]; ok {
		return zone
	}
	return unknown
}
