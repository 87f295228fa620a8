package pipeline

// Replies sent to the requester. Formats take the invoice id.
const (
	MessageInvalidNumber  = "❌ خطأ: الرقم المرسل غير صحيح."
	MessageSearching      = "... جاري البحث عن الفاتورة رقم %d ..."
	MessageNotFound       = "❌ لم يتم العثور على فاتورة بهذا الرقم: %d"
	MessagePreparingPDF   = "... جاري تحضير ملف الـ PDF ..."
	MessageTemplateError  = "❌ لا يمكن قراءة <body> أو <style> من template.html"
	MessageTechnicalError = "❌ حدث خطأ فني أثناء جلب بيانات الفاتورة. يرجى المحاولة لاحقاً."
	DocumentCaption       = "📄 تفضل ملف PDF للفاتورة رقم %d"
	DocumentFilename      = "invoice_%d.pdf"
	DocumentTitle         = "فاتورة رقم %d"
)
