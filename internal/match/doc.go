// Package match decides whether a unit may load on the current page.
//
// A unit carries a list of Conditions. Each names a param (path, host,
// query, cookie, date), an operator and its operands:
//
//	match:
//	  - param: path
//	    condition: contains
//	    values: {scalar: /checkout}
//	  - param: cookie
//	    param_name: consent
//	    condition: regex
//	    values: {pattern: "^yes$"}
//	    not: false
//
// A Checker evaluates such a list against a Context built from the page URL,
// its cookies and the current time.
package match
