// Package guest runs hot-reloadable modules compiled to WebAssembly.
//
// An Engine owns one wazero runtime with the "hotreflect" host module
// instantiated in it. Guests describe their types through its imports while
// their hr_register_types export runs:
//
//	type_begin(name_ptr, name_len, size, align, version) -> i32
//	type_field(name_ptr, name_len, offset, size, ref, flags, kind) -> i32
//	type_commit() -> i32          // new type id, -1 if refused
//	type_find(name_ptr, name_len) -> i32
//	module_unregister()
//	log(ptr, len)
//
// A guest must export its memory and hr_module_info, which returns the
// address of {name_ptr, name_len, version, state_version} as four u32s.
// Everything else is optional, and a missing export means the entry point
// is not offered:
//
//	hr_register_types()
//	hr_unregister_types()
//	hr_hot_reload_fixup(ptr, len, version)
//	hr_get_state() -> i64         // ptr<<32 | len, 0 for none
//	hr_alloc(len) -> i32          // buffer the host writes state into
//	hr_instances(type_id) -> i64  // ptr<<32 | count of live objects
//
// The linear memory is the memory that registered type descriptors
// describe, so the registry's field accessors work on it directly.
package guest
