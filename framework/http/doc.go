// Package http holds the request and response helpers shared by endpoints
// and framework modules, plus the Error type handlers return to pick a
// status code.
//
// Import it under an alias to keep net/http available:
//
//	import khttp "github.com/km-arc/katapult/framework/http"
//
//	func (m *AdminModule) deleteUser(w http.ResponseWriter, r *http.Request) {
//	    req, res := khttp.NewRequest(r), khttp.NewResponse(w)
//	    var body struct{ Name string `json:"name" validate:"required"` }
//	    if err := req.BindValid(&body); err != nil {
//	        res.Fail(err)
//	        return
//	    }
//	    ...
//	}
package http
