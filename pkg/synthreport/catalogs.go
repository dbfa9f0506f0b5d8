package synthreport

// Catalogs of plausible system values the generator draws from. Fixed
// so the same seed always selects the same entries.

// processCatalog lists daemon-style process names a host would plausibly
// report crashes for.
var processCatalog = []string{
	"mdworker_shared",
	"coreduetd",
	"nsurlsessiond",
	"trustd",
	"cfprefsd",
	"distnoted",
	"logd_helper",
	"diagnosticd",
	"spindump_agent",
	"syspolicyd",
}

// exceptionCatalog lists the exception kinds a report may carry.
var exceptionCatalog = []string{
	"EXC_BAD_ACCESS (SIGSEGV)",
	"EXC_BAD_ACCESS (SIGBUS)",
	"EXC_CRASH (SIGABRT)",
	"EXC_BAD_INSTRUCTION (SIGILL)",
	"EXC_ARITHMETIC (SIGFPE)",
	"EXC_BREAKPOINT (SIGTRAP)",
}

// imageCatalog lists framework image names for stack frames. The crash
// frame always uses the first entry's style of system library.
type imageTemplate struct {
	name string
	path string
}

var imageCatalog = []imageTemplate{
	{"libsystem_kernel.dylib", "/usr/lib/system/libsystem_kernel.dylib"},
	{"libsystem_pthread.dylib", "/usr/lib/system/libsystem_pthread.dylib"},
	{"libdispatch.dylib", "/usr/lib/system/libdispatch.dylib"},
	{"CoreFoundation", "/System/Library/Frameworks/CoreFoundation.framework/Versions/A/CoreFoundation"},
	{"Foundation", "/System/Library/Frameworks/Foundation.framework/Versions/C/Foundation"},
	{"libobjc.A.dylib", "/usr/lib/libobjc.A.dylib"},
	{"CoreServices", "/System/Library/Frameworks/CoreServices.framework/Versions/A/CoreServices"},
	{"IOKit", "/System/Library/Frameworks/IOKit.framework/Versions/A/IOKit"},
}

// symbolCatalog lists plausible entry-point symbols for frames.
var symbolCatalog = []string{
	"mach_msg_trap",
	"mach_msg",
	"__CFRunLoopServiceMachPort",
	"__CFRunLoopRun",
	"CFRunLoopRunSpecific",
	"_dispatch_client_callout",
	"_dispatch_lane_serial_drain",
	"_pthread_wqthread",
	"start_wqthread",
	"objc_msgSend",
	"_NSThreadGet0",
	"xpc_connection_send_message",
}
