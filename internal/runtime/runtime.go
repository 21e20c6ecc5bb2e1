package runtime

// This is prepended to every bundle. The generated code calls
// "_rpack_bootstrap" with the module table and the entry module ID. Each
// module function receives "module", "exports" and "_rpack_require".
//
// A module is cached before its function runs, so a module that is required
// again while it is still running (an import cycle) sees its partially
// filled exports instead of running twice.
const Code = `function _rpack_bootstrap(modules, entryId) {
  var installed = {};
  function _rpack_require(id) {
    var cached = installed[id];
    if (cached) {
      return cached.exports;
    }
    if (!Object.prototype.hasOwnProperty.call(modules, id)) {
      throw new Error("Cannot find module \"" + id + "\"");
    }
    var module = installed[id] = {id: id, loaded: false, exports: {}};
    modules[id].call(module.exports, module, module.exports, _rpack_require);
    module.loaded = true;
    return module.exports;
  }
  return _rpack_require(entryId);
}
`

// The names the generated code uses to talk to the code above
const (
	BootstrapName = "_rpack_bootstrap"
	RequireName   = "_rpack_require"
	ModulesName   = "modules"
)
