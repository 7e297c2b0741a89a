package match

// Params understood by the Checker. Conditions naming any other param pass.
const (
	ParamPath   = "path"
	ParamHost   = "host"
	ParamQuery  = "query"
	ParamCookie = "cookie"
	ParamDate   = "date"
)

// Condition operators.
const (
	OpContains  = "contains"
	OpRegex     = "regex"
	OpDateRange = "daterange"
	OpDayOfWeek = "dow"
)

// Condition is one match rule of a unit descriptor.
type Condition struct {
	Param string `yaml:"param" json:"param"`

	// ParamName selects the query parameter or cookie to test.
	ParamName string `yaml:"param_name,omitempty" json:"param_name,omitempty"`

	Condition string  `yaml:"condition" json:"condition"`
	Not       bool    `yaml:"not,omitempty" json:"not,omitempty"`
	Values    *Values `yaml:"values,omitempty" json:"values,omitempty"`
}

// Values holds the operands of a Condition. Which fields are read depends on
// the operator: Scalar for contains, Pattern for regex, Min/Max for
// daterange, Days for dow.
type Values struct {
	Scalar  string `yaml:"scalar,omitempty" json:"scalar,omitempty"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Min and Max are RFC 3339 timestamps or YYYY-MM-DD dates.
	// Empty means unbounded.
	Min string `yaml:"min,omitempty" json:"min,omitempty"`
	Max string `yaml:"max,omitempty" json:"max,omitempty"`

	// Days are weekday numbers, 0 = Sunday.
	Days []int `yaml:"days,omitempty" json:"days,omitempty"`
}
