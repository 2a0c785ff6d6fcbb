package forms

// DefaultTOML is written to the forms file on first use.
const DefaultTOML = `# Cropform form definitions.
# Each [[form]] is an ordered chain of [[form.stage]] blocks. A stage loads
# its options from the lookup backend (endpoint) or lists them inline
# (options). Stages only load once everything in depends_on is selected.

[[form]]
name = "location"
title = "Farm location"

[[form.stage]]
key = "state"
endpoint = "/get-states"
required = true

[[form.stage]]
key = "district"
depends_on = ["state"]
endpoint = "/get-districts"
required = true

[[form.stage]]
key = "taluk"
depends_on = ["state", "district"]
endpoint = "/get-taluks"
required = true

[[form]]
name = "crop"
title = "Crop selection"

[[form.stage]]
key = "state"
endpoint = "/get-states"
required = true

[[form.stage]]
key = "season"
endpoint = "/get-seasons"
required = true

[[form.stage]]
key = "crop"
depends_on = ["state", "season"]
endpoint = "/get_crops"
params = "query"
sort = "label"
required = true

[[form]]
name = "prediction"
title = "Yield prediction"

[[form.stage]]
key = "country"
options = ["India"]
required = true

[[form.stage]]
key = "state"
depends_on = ["country"]
endpoint = "/get-states"
params = "none"
required = true

[[form.stage]]
key = "district"
depends_on = ["state"]
endpoint = "/get-districts"
required = true

[[form.stage]]
key = "taluk"
depends_on = ["state", "district"]
endpoint = "/get-taluks"
`
