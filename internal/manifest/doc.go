// Package manifest loads unit manifests.
//
// A manifest is a YAML or CUE file naming the units to load, in order, and
// the page to load them on:
//
//	name: checkout
//	serial: false
//	page:
//	  url: https://shop.example.com/checkout?utm_source=mail
//	  cookies: "consent=yes"
//	units:
//	  - id: analytics
//	    type: script
//	    src: https://cdn.example.com/a.js
//	    inject: {target: head}
//	  - type: html
//	    src: <div id="banner"></div><script src="banner.js"></script>
//
// CUE manifests are unified with the #Manifest definition of an embedded
// schema, so type and closedness errors are reported with CUE positions.
// Validate adds the checks neither format can express.
package manifest
